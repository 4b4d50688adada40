//go:build integration

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	list := NewRedisRevocationList(client)

	t.Run("single token", func(t *testing.T) {
		require.NoError(t, list.RevokeToken(ctx, "jti-1", time.Minute))

		revoked, err := list.IsTokenRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = list.IsTokenRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("every token of a user", func(t *testing.T) {
		issued := time.Now().Add(-time.Hour)
		require.NoError(t, list.RevokeUser(ctx, "user-1", time.Hour))

		revoked, err := list.IsUserRevoked(ctx, "user-1", issued)
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = list.IsUserRevoked(ctx, "user-1", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, revoked, "tokens issued after the revocation stay valid")

		revoked, err = list.IsUserRevoked(ctx, "user-2", issued)
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
