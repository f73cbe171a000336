// Package crypto provides the Ed25519 signing and verification
// primitives the envelope package signs payloads with, adapted from
// the Signer/Verifier/KeyRing split used throughout
// Mindburn-Labs-helm/core/pkg/crypto — the spec mandates Ed25519 only
// (no HMAC, no JWT), so this package is deliberately narrower than its
// teacher: there is exactly one signature scheme, not a pluggable set.
package crypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"fmt"
	"sort"
	"sync"
)

// Signer signs arbitrary message bytes with a single Ed25519 key.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() ed25519.PublicKey
}

// Ed25519Signer is the default Signer implementation.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer generates a fresh Ed25519 key pair. Key generation
// and storage are an external collaborator's responsibility per the
// spec's scope; this constructor exists for tests and examples.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub}, nil
}

// NewEd25519SignerFromKey wraps a caller-supplied private key.
func NewEd25519SignerFromKey(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	if len(s.priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid private key size %d", len(s.priv))
	}
	return ed25519.Sign(s.priv, message), nil
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// Verify checks an Ed25519 signature over message against pubKey.
func Verify(pubKey ed25519.PublicKey, message, signature []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey, message, signature)
}

// KeyRing holds multiple named signers to support key rotation, the way
// Mindburn-Labs-helm/core/pkg/crypto.KeyRing does, scoped down to the
// single Sign/PublicKey surface this module needs.
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]Signer
}

// NewKeyRing creates an empty key ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{signers: make(map[string]Signer)}
}

// AddKey registers a signer under signerID, replacing any prior signer
// with the same ID (the rotation path: the newest AddKey call for a
// given ID wins).
func (k *KeyRing) AddKey(signerID string, s Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.signers[signerID] = s
}

// RevokeKey removes a signer from the ring.
func (k *KeyRing) RevokeKey(signerID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.signers, signerID)
}

// Get returns the signer registered for signerID.
func (k *KeyRing) Get(signerID string) (Signer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[signerID]
	return s, ok
}

// SignerIDs returns the currently registered signer IDs, sorted.
func (k *KeyRing) SignerIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ids := make([]string, 0, len(k.signers))
	for id := range k.signers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolver exposes the key ring as a signer_id → public key lookup,
// the contract the spec's caller-supplied resolver function has. Its
// func type returns ed25519.PublicKey rather than []byte, so it is not
// itself a pkg/envelope.Resolver; passing it there takes a wrapping
// func literal.
func (k *KeyRing) Resolver() func(signerID string) (ed25519.PublicKey, bool) {
	return func(signerID string) (ed25519.PublicKey, bool) {
		s, ok := k.Get(signerID)
		if !ok {
			return nil, false
		}
		return s.PublicKey(), true
	}
}
