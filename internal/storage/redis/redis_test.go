//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/denim-store/internal/cart"
)

func setupClient(t *testing.T) Options {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return Options{Addr: host + ":" + port.Port()}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, setupClient(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := New(client, time.Hour)
	require.NoError(t, s.Ping(ctx))

	key := cart.StorageKey("redis-test")
	_, err = s.Load(ctx, key)
	require.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, s.Save(ctx, key, []byte(`[]`)))
	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}
