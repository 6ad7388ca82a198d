package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/domain"
)

const testPrefix = "authorize:"

func newTestEntity(t *testing.T) (*RedisEntity, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisEntity(client, testPrefix, time.Hour, bcrypt.MinCost, zap.NewNop()), srv
}

func TestAddUserRoundTrip(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	attrs := map[string]string{"phone": "+79020055555"}
	user, err := entity.AddUser(ctx, "Test user", "test@example.com", "qwertyu", attrs)
	require.NoError(t, err)

	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "Test user", user.Name)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, domain.StatusCreated, user.Status)
	assert.Equal(t, domain.RoleUsers, user.Role)
	assert.Equal(t, attrs, user.Attributes)

	priv, err := entity.GetUserByName(ctx, "Test user")
	require.NoError(t, err)
	assert.NotEqual(t, "qwertyu", priv.PasswordHash)
	assert.NotEmpty(t, priv.PasswordHash)
}

func TestAddUserDuplicateName(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	first, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	_, err = entity.AddUser(ctx, "alice", "other@example.com", "pw2", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	// First record is unchanged.
	again, err := entity.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "alice@example.com", again.Email)
}

func TestGetUserByNameAndPasswordIndistinguishable(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	_, unknownErr := entity.GetUserByNameAndPassword(ctx, "nobody", "pw1")
	_, wrongPwdErr := entity.GetUserByNameAndPassword(ctx, "alice", "wrong")

	assert.ErrorIs(t, unknownErr, domain.ErrNotFound)
	assert.ErrorIs(t, wrongPwdErr, domain.ErrNotFound)
	assert.Equal(t, unknownErr, wrongPwdErr)
}

func TestGetUserByIDAndMissing(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	created, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	user, err := entity.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, user.Name)

	_, err = entity.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHalfWrittenRecordReadsAsAbsent(t *testing.T) {
	entity, srv := newTestEntity(t)
	ctx := context.Background()

	// Only the create-if-absent gate has landed; no id field yet.
	srv.HSet(testPrefix+"users:name:ghost", "name", "ghost")

	_, err := entity.GetUserByName(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnableDisableUser(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	user, err := entity.EnableUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, user.Status)

	user, err = entity.DisableUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisabled, user.Status)

	user, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, user.Status)

	_, err = entity.EnableUser(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddUserRole(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	user, err := entity.AddUserRole(ctx, "alice", domain.RoleAdmins)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmins, user.Role)

	// A custom role overwrites, it does not union.
	user, err = entity.AddUserRole(ctx, "alice", domain.Role("Batman"))
	require.NoError(t, err)
	assert.Equal(t, domain.Role("Batman"), user.Role)

	_, err = entity.AddUserRole(ctx, "nobody", domain.RoleAdmins)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenLifecycle(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)
	_, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, entity.AddToken(ctx, "alice", "just_my_token"))

	token, err := entity.GetToken(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "just_my_token", token)

	user, err := entity.GetUserByToken(ctx, "just_my_token")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, domain.StatusActive, user.Status)

	require.NoError(t, entity.DeleteToken(ctx, "just_my_token"))

	_, err = entity.GetUserByToken(ctx, "just_my_token")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = entity.GetToken(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUserByTokenRequiresActive(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)

	// Still in StatusCreated.
	require.NoError(t, entity.AddToken(ctx, "alice", "tok"))
	_, err = entity.GetUserByToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotActive)

	_, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)
	_, err = entity.GetUserByToken(ctx, "tok")
	require.NoError(t, err)

	_, err = entity.DisableUser(ctx, "alice")
	require.NoError(t, err)
	_, err = entity.GetUserByToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotActive)
}

func TestTokenExpiryAndSlidingRefresh(t *testing.T) {
	entity, srv := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)
	_, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, entity.AddToken(ctx, "alice", "tok"))
	assert.Equal(t, time.Hour, srv.TTL(testPrefix+"users:tokens:token:tok"))
	assert.Equal(t, time.Hour, srv.TTL(testPrefix+"users:tokens:user:alice"))

	// A successful lookup slides the TTL back to the full window.
	srv.FastForward(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, srv.TTL(testPrefix+"users:tokens:token:tok"))

	_, err = entity.GetUserByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, srv.TTL(testPrefix+"users:tokens:token:tok"))
	assert.Equal(t, time.Hour, srv.TTL(testPrefix+"users:tokens:user:alice"))

	// Unused tokens die with their TTL.
	srv.FastForward(2 * time.Hour)
	_, err = entity.GetUserByToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = entity.GetToken(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRebindingKeepsOldReverseMapping(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	_, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)
	_, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, entity.AddToken(ctx, "alice", "first"))
	require.NoError(t, entity.AddToken(ctx, "alice", "second"))

	token, err := entity.GetToken(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	// The old token still resolves until its own TTL lapses.
	user, err := entity.GetUserByToken(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
}

func TestListUsers(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := entity.AddUser(ctx, name, name+"@example.com", "pw", nil)
		require.NoError(t, err)
	}

	users, err := entity.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)
	assert.Equal(t, "carol", users[2].Name)

	// Skip/limit semantics.
	users, err = entity.ListUsers(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Name)

	users, err = entity.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = entity.ListUsers(ctx, -1, 10)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = entity.ListUsers(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, users)

	// A huge count must not wrap the stop rank negative.
	users, err = entity.ListUsers(ctx, 1, math.MaxInt64)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Name)
	assert.Equal(t, "carol", users[1].Name)
}

func TestDeleteUserRemovesFromListing(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	alice, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw", nil)
	require.NoError(t, err)
	_, err = entity.AddUser(ctx, "bob", "bob@example.com", "pw", nil)
	require.NoError(t, err)

	require.NoError(t, entity.DeleteUser(ctx, alice.ID))

	users, err := entity.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Name)

	_, err = entity.GetUserByName(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = entity.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is still reported as success.
	assert.NoError(t, entity.DeleteUser(ctx, alice.ID))
}

func TestIDsAreNeverReused(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	alice, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw", nil)
	require.NoError(t, err)
	require.NoError(t, entity.DeleteUser(ctx, alice.ID))

	bob, err := entity.AddUser(ctx, "bob", "bob@example.com", "pw", nil)
	require.NoError(t, err)
	assert.Greater(t, bob.ID, alice.ID)
}

func TestEndToEndAccountLifecycle(t *testing.T) {
	entity, _ := newTestEntity(t)
	ctx := context.Background()

	user, err := entity.AddUser(ctx, "alice", "alice@example.com", "pw1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, user.Status)

	_, err = entity.EnableUser(ctx, "alice")
	require.NoError(t, err)

	signedIn, err := entity.GetUserByNameAndPassword(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, signedIn.Status)

	require.NoError(t, entity.AddToken(ctx, "alice", "session-token-1"))
	byToken, err := entity.GetUserByToken(ctx, "session-token-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, byToken.Status)

	_, err = entity.DisableUser(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, entity.AddToken(ctx, "alice", "session-token-2"))
	_, err = entity.GetUserByToken(ctx, "session-token-2")
	assert.ErrorIs(t, err, domain.ErrNotActive)
}
