package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("v1")))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Delete(ctx, "k1"))
	_, err = s.Get(ctx, "k1")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemoryStoreKeysByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "harmonad:auth:0xaaa", []byte("1")))
	require.NoError(t, s.Set(ctx, "harmonad:auth:0xbbb", []byte("2")))
	require.NoError(t, s.Set(ctx, "harmonad:history:0xaaa", []byte("3")))

	keys, err := s.Keys(ctx, "harmonad:auth:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"harmonad:auth:0xaaa", "harmonad:auth:0xbbb"}, keys)
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	val := []byte("original")
	require.NoError(t, s.Set(ctx, "k", val))
	val[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	// Mutating the returned slice must not corrupt the stored value.
	got[0] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
