package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/promo"
	"github.com/xenking/denim-store/internal/storage/file"
	"github.com/xenking/denim-store/internal/storage/memory"
)

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Len())

	_, err = loadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o600))
	_, err = loadCatalog(bad)
	assert.Error(t, err)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, closeFn, err := openStorage(ctx, StorageConfig{Driver: DriverMemory}, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.Snapshots{}, s)
	})

	t.Run("file", func(t *testing.T) {
		s, closeFn, err := openStorage(ctx, StorageConfig{Driver: DriverFile, Dir: t.TempDir()}, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &file.Storage{}, s)

		require.NoError(t, s.Save(ctx, cart.StorageKey("c1"), []byte("[]")))
		data, err := s.Load(ctx, cart.StorageKey("c1"))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("postgres without pool", func(t *testing.T) {
		_, _, err := openStorage(ctx, StorageConfig{Driver: DriverPostgres}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := openStorage(ctx, StorageConfig{Driver: "etcd"}, nil)
		assert.Error(t, err)
	})
}

func TestOpenRepositories_Memory(t *testing.T) {
	orders, promos, err := openRepositories(nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Orders{}, orders)

	rule, err := promos.FindByCode(context.Background(), "DENIM15")
	require.NoError(t, err)
	assert.Equal(t, promo.DiscountPercentage, rule.DiscountType)
}

func TestSessionSecret(t *testing.T) {
	lg := zap.NewNop()

	s, err := sessionSecret("configured", lg)
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), s)

	a, err := sessionSecret("", lg)
	require.NoError(t, err)
	b, err := sessionSecret("", lg)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
