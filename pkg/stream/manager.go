package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/config"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Manager is the map-backed stream registry spec §9 says to retain
// "only if remote/stateless callers require it" — everyone else should
// hold a *Session directly. It exists to satisfy the stream_id-keyed
// external API surface (spec §6) for callers that cannot hold a Go
// value across calls (an RPC boundary, a process restart against
// RedisStore or BoltStore).
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager returns a Manager backed by store, evicting sessions idle
// for longer than ttl.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// NewDefaultManager returns a Manager backed by store, using the
// ambient INKMARK_STREAM_TTL default from config.Load for sessions
// that don't need a caller-chosen eviction window.
func NewDefaultManager(store Store) *Manager {
	return NewManager(store, config.Load().StreamTTL)
}

// Init signs metadata into a new session and registers it under a
// freshly generated stream_id.
func (m *Manager) Init(ctx context.Context, metadata canon.Payload, targetMode locator.Mode, firstOnly bool, signer crypto.Signer) (string, error) {
	id := uuid.NewString()
	session, err := NewSession(id, metadata, targetMode, firstOnly, signer)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(ctx, id, session, m.ttl); err != nil {
		return "", err
	}
	return id, nil
}

// Process looks up streamID and runs Session.Process on it, persisting
// the mutated session back to the store afterward.
func (m *Manager) Process(ctx context.Context, streamID, chunk string, isFirst, isLast bool) (string, error) {
	session, ok, err := m.store.Load(ctx, streamID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", werrors.New(werrors.UnknownStream, "no session registered for stream_id "+streamID)
	}

	out, err := session.Process(ctx, chunk, isFirst, isLast)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(ctx, streamID, session, m.ttl); err != nil {
		return "", err
	}
	return out, nil
}

// Finalize looks up streamID and runs Session.Finalize on it, then
// evicts it from the store: a finalized session accepts no further
// operations, so there is nothing left worth keeping registered.
func (m *Manager) Finalize(ctx context.Context, streamID string) (string, error) {
	session, ok, err := m.store.Load(ctx, streamID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", werrors.New(werrors.UnknownStream, "no session registered for stream_id "+streamID)
	}

	out, err := session.Finalize(ctx)
	if err != nil {
		return "", err
	}
	_ = m.store.Delete(ctx, streamID)
	return out, nil
}

// Info returns the stream_info snapshot for streamID.
func (m *Manager) Info(ctx context.Context, streamID string) (Info, error) {
	session, ok, err := m.store.Load(ctx, streamID)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, werrors.New(werrors.UnknownStream, "no session registered for stream_id "+streamID)
	}
	return session.Info(), nil
}

// Evict explicitly discards a session regardless of its state,
// satisfying spec §5's "registry MUST allow explicit eviction".
func (m *Manager) Evict(ctx context.Context, streamID string) error {
	return m.store.Delete(ctx, streamID)
}
