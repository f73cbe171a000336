package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/inkmark/inkmark/pkg/locator"
)

// Store persists Sessions for lookup by stream_id, the map-backed path
// spec §9 says to retain only for remote/stateless callers. Every
// implementation MUST expire idle entries (spec §5: "MUST NOT leak
// sessions on abandonment").
type Store interface {
	Save(ctx context.Context, id string, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Session, bool, error)
	Delete(ctx context.Context, id string) error
}

// snapshot is the wire/on-disk representation of a Session, used by
// every Store implementation that crosses a process boundary (Redis,
// bbolt) or wants a copyable value (the in-memory store does not
// strictly need it but uses the same shape for uniformity).
type snapshot struct {
	ID              string `json:"id"`
	Env             []byte `json:"env"`
	TargetMode      string `json:"target_mode"`
	FirstOnly       bool   `json:"first_only"`
	Buffer          string `json:"buffer"`
	Emitted         int    `json:"emitted"`
	Drained         bool   `json:"drained"`
	Finalized       bool   `json:"finalized"`
	IncompleteEmbed bool   `json:"incomplete_embed"`
}

func (s *Session) toSnapshot() snapshot {
	return snapshot{
		ID:              s.id,
		Env:             s.env,
		TargetMode:      string(s.targetMode),
		FirstOnly:       s.firstOnly,
		Buffer:          string(s.buffer),
		Emitted:         s.emitted,
		Drained:         s.drained,
		Finalized:       s.finalized,
		IncompleteEmbed: s.incompleteEmbed,
	}
}

func fromSnapshot(snap snapshot) *Session {
	return &Session{
		id:              snap.ID,
		env:             snap.Env,
		targetMode:      locator.Mode(snap.TargetMode),
		firstOnly:       snap.FirstOnly,
		buffer:          []rune(snap.Buffer),
		emitted:         snap.Emitted,
		drained:         snap.Drained,
		finalized:       snap.Finalized,
		incompleteEmbed: snap.IncompleteEmbed,
	}
}

func marshalSnapshot(s *Session) ([]byte, error) {
	return json.Marshal(s.toSnapshot())
}

func unmarshalSnapshot(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return fromSnapshot(snap), nil
}

// memEntry pairs a session with its absolute idle-expiry time.
type memEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore is the default Store: a mutex-guarded map with lazy
// idle-TTL eviction (an expired entry is dropped when it is loaded, and
// every Save drops all expired entries, rather than a background
// sweeper doing so), mirroring the
// self-cleaning EXPIRE used by Mindburn-Labs-helm/core's Redis token
// bucket (see RedisStore, adapted from the same teacher file).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry)}
}

func (m *MemoryStore) Save(_ context.Context, id string, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for other, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, other)
		}
	}
	m.entries[id] = memEntry{session: s, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, id)
		return nil, false, nil
	}
	return entry.session, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
