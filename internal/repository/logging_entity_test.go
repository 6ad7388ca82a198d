package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

func TestLoggingEntityForwardsAndCounts(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics()
	var entity Entity = NewLoggingEntity(
		NewRedisEntity(client, testPrefix, time.Hour, bcrypt.MinCost, zap.NewNop()),
		zap.NewNop(),
		metrics,
	)
	ctx := context.Background()

	user, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	_, err = entity.GetUserByName(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int64(1), metrics.OpCount("add_user"))
	assert.Equal(t, int64(0), metrics.OpFailures("add_user"))
	assert.Equal(t, int64(1), metrics.OpCount("get_user_by_name"))
	assert.Equal(t, int64(1), metrics.OpFailures("get_user_by_name"))
}

func TestLoggingEntityNilMetrics(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	entity := NewLoggingEntity(
		NewRedisEntity(client, testPrefix, time.Hour, bcrypt.MinCost, zap.NewNop()),
		zap.NewNop(),
		nil,
	)

	_, err := entity.AddUser(context.Background(), "alice", "alice@example.com", "pw", nil)
	require.NoError(t, err)
}
