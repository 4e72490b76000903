package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/denim-store/internal/cart"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "carts")

	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	key := cart.StorageKey("abc/../def")
	_, err = s.Load(ctx, key)
	require.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, s.Save(ctx, key, []byte(`[1]`)))
	require.NoError(t, s.Save(ctx, key, []byte(`[]`)))

	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestStorage_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Save(ctx, "k", []byte(`[]`)), context.Canceled)
	_, err = s.Load(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStorage_WithCartStore(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	key := cart.StorageKey("c1")
	require.NoError(t, s.Save(ctx, key, []byte(`garbage`)))

	store := cart.NewStore(key, s)
	require.ErrorIs(t, store.Rehydrate(ctx), cart.ErrMalformedSnapshot)
	assert.Empty(t, store.Items())
}
