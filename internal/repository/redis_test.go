package repository

import (
	"context"
	"testing"
	"time"

	"portal/internal/config"
	"portal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFlashRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisFlashRepository(client, time.Minute)
	ctx := context.Background()

	t.Run("PushAndPopInOrder", func(t *testing.T) {
		require.NoError(t, repo.Push(ctx, "sid-1", models.Flash{Kind: models.FlashSuccess, Message: "Sala creada"}))
		require.NoError(t, repo.Push(ctx, "sid-1", models.Flash{Kind: models.FlashInfo, Message: "Otra"}))

		assert.True(t, s.Exists("flash:sid-1"))
		assert.Equal(t, time.Minute, s.TTL("flash:sid-1"))

		got, err := repo.Pop(ctx, "sid-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Sala creada", got[0].Message)
		assert.Equal(t, models.FlashInfo, got[1].Kind)

		assert.False(t, s.Exists("flash:sid-1"))
	})

	t.Run("PopEmpty", func(t *testing.T) {
		got, err := repo.Pop(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.Push(ctx, "sid-2", models.Flash{Kind: models.FlashError, Message: "x"}))
		s.FastForward(2 * time.Minute)

		got, err := repo.Pop(ctx, "sid-2")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		require.NoError(t, repo.Push(ctx, "a", models.Flash{Message: "para a"}))
		got, err := repo.Pop(ctx, "b")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = repo.Pop(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestRedisFlashRepository_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)
	repo := NewRedisFlashRepository(client, time.Minute)

	s.Close()
	ctx := context.Background()
	assert.Error(t, repo.Push(ctx, "sid", models.Flash{Message: "x"}))
	_, err = repo.Pop(ctx, "sid")
	assert.Error(t, err)
	assert.Error(t, Ping(ctx, client))
	assert.Error(t, repo.Ping(ctx))
}

func TestRedisFlashRepository_NilClient(t *testing.T) {
	repo := NewRedisFlashRepository(nil, time.Minute)
	assert.Error(t, repo.Push(context.Background(), "sid", models.Flash{}))
	_, err := repo.Pop(context.Background(), "sid")
	assert.Error(t, err)
}
