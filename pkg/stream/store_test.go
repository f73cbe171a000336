package stream

import (
	"context"
	"testing"
	"time"

	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	payload, err := canon.NewBasic("k1", 1714832824, "gpt-4", "", nil)
	require.NoError(t, err)

	session, err := NewSession("s1", payload, locator.Whitespace, true, signer)
	require.NoError(t, err)
	_, err = session.Process(context.Background(), "partial buffer with a few words", false, false)
	require.NoError(t, err)

	data, err := marshalSnapshot(session)
	require.NoError(t, err)

	restored, err := unmarshalSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, session.id, restored.id)
	assert.Equal(t, session.env, restored.env)
	assert.Equal(t, session.targetMode, restored.targetMode)
	assert.Equal(t, session.firstOnly, restored.firstOnly)
	assert.Equal(t, session.buffer, restored.buffer)
	assert.Equal(t, session.emitted, restored.emitted)
	assert.Equal(t, session.drained, restored.drained)
}

func TestMemoryStoreSaveLoadDelete(t *testing.T) {
	signer := newTestSigner(t)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", nil)
	require.NoError(t, err)
	session, err := NewSession("s1", payload, locator.Whitespace, false, signer)
	require.NoError(t, err)

	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", session, time.Minute))

	loaded, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, session, loaded)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, ok, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiresIdleEntries(t *testing.T) {
	signer := newTestSigner(t)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", nil)
	require.NoError(t, err)
	session, err := NewSession("s1", payload, locator.Whitespace, false, signer)
	require.NoError(t, err)

	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", session, time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}
