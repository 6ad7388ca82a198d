package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// Key layout, each prepended with the caller-supplied prefix:
//
//	users:name:<name>         hash    canonical user record
//	users:id:<id>             string  id -> name index
//	increment                 hash    monotonic id allocator (field "users")
//	users:list                zset    creation order, score = unix timestamp
//	users:tokens:user:<name>  string  name -> token, token TTL
//	users:tokens:token:<tok>  string  token -> name, token TTL
const (
	keyUserByName  = "users:name:"
	keyNameByID    = "users:id:"
	keyIncrement   = "increment"
	keyUserList    = "users:list"
	keyTokenByUser = "users:tokens:user:"
	keyUserByToken = "users:tokens:token:"

	incrementField = "users"
)

// Record hash fields.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldEmail      = "email"
	fieldPassword   = "password"
	fieldStatus     = "status"
	fieldRole       = "role"
	fieldAttributes = "attributes"
)

// RedisEntity implements Entity against a Redis backend. The prefix isolates
// tenants sharing one database.
type RedisEntity struct {
	client   *redis.Client
	prefix   string
	tokenTTL time.Duration
	cost     int
	logger   *zap.Logger
}

// NewRedisEntity builds a Redis-backed Entity. A non-positive ttl defaults
// to one hour, a non-positive cost to the bcrypt default.
func NewRedisEntity(client *redis.Client, prefix string, ttl time.Duration, cost int, logger *zap.Logger) *RedisEntity {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &RedisEntity{client: client, prefix: prefix, tokenTTL: ttl, cost: cost, logger: logger}
}

func (e *RedisEntity) userKey(name string) string  { return e.prefix + keyUserByName + name }
func (e *RedisEntity) idKey(id int64) string       { return e.prefix + keyNameByID + strconv.FormatInt(id, 10) }
func (e *RedisEntity) incrementKey() string        { return e.prefix + keyIncrement }
func (e *RedisEntity) listKey() string             { return e.prefix + keyUserList }
func (e *RedisEntity) tokenKey(name string) string { return e.prefix + keyTokenByUser + name }
func (e *RedisEntity) ownerKey(token string) string {
	return e.prefix + keyUserByToken + token
}

func ioError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrIO, err)
}

// GetUserByName loads the canonical record. A hash that exists but has no id
// field is a half-created record and reads as absent.
func (e *RedisEntity) GetUserByName(ctx context.Context, name string) (*domain.PrivateUser, error) {
	data, err := e.client.HGetAll(ctx, e.userKey(name)).Result()
	if err != nil {
		return nil, ioError(err)
	}
	if len(data) == 0 || data[fieldID] == "" {
		return nil, domain.ErrNotFound
	}

	id, err := strconv.ParseInt(data[fieldID], 10, 64)
	if err != nil {
		id = 0
	}
	attrs := map[string]string{}
	if raw := data[fieldAttributes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			e.logger.Warn("corrupt attributes field", zap.String("user", name), zap.Error(err))
			attrs = map[string]string{}
		}
	}

	return &domain.PrivateUser{
		ID:           id,
		Name:         data[fieldName],
		Email:        data[fieldEmail],
		PasswordHash: data[fieldPassword],
		Status:       domain.StatusFromCode(data[fieldStatus]),
		Role:         domain.ParseRole(data[fieldRole]),
		Attributes:   attrs,
	}, nil
}

// GetUserByNameAndPassword checks credentials. Unknown name and wrong
// password produce the same domain.ErrNotFound to prevent enumeration.
func (e *RedisEntity) GetUserByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error) {
	priv, err := e.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(priv.PasswordHash, password); err != nil {
		return nil, domain.ErrNotFound
	}
	user := priv.Public()
	return &user, nil
}

func (e *RedisEntity) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	name, err := e.client.Get(ctx, e.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, ioError(err)
	}
	return e.publicUser(ctx, name)
}

// AddUser registers a new account. HSETNX on the name field of the record
// hash is the single atomic create-if-absent gate; the remaining writes run
// only once it succeeds and are unwound on failure. The full field map lands
// in one HSET, so a reader never observes a partially written user.
func (e *RedisEntity) AddUser(ctx context.Context, name, email, password string, attributes map[string]string) (*domain.User, error) {
	if attributes == nil {
		attributes = map[string]string{}
	}

	created, err := e.client.HSetNX(ctx, e.userKey(name), fieldName, name).Result()
	if err != nil {
		return nil, ioError(err)
	}
	if !created {
		return nil, domain.ErrDuplicateUsername
	}

	id, err := e.client.HIncrBy(ctx, e.incrementKey(), incrementField, 1).Result()
	if err != nil {
		e.unwindCreate(ctx, name, 0)
		return nil, ioError(err)
	}

	hash, err := auth.HashPassword(password, e.cost)
	if err != nil {
		e.unwindCreate(ctx, name, id)
		return nil, err
	}
	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		e.unwindCreate(ctx, name, id)
		return nil, err
	}

	if err := e.client.Set(ctx, e.idKey(id), name, 0).Err(); err != nil {
		e.unwindCreate(ctx, name, id)
		return nil, ioError(err)
	}
	if err := e.client.ZAdd(ctx, e.listKey(), redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: id,
	}).Err(); err != nil {
		e.unwindCreate(ctx, name, id)
		return nil, ioError(err)
	}
	if err := e.client.HSet(ctx, e.userKey(name), map[string]interface{}{
		fieldID:         id,
		fieldName:       name,
		fieldEmail:      email,
		fieldPassword:   hash,
		fieldStatus:     domain.StatusCreated.Code(),
		fieldRole:       string(domain.RoleUsers),
		fieldAttributes: string(attrJSON),
	}).Err(); err != nil {
		e.unwindCreate(ctx, name, id)
		return nil, ioError(err)
	}

	return e.publicUser(ctx, name)
}

// unwindCreate rolls back a failed registration best-effort so the name gate
// does not stay locked.
func (e *RedisEntity) unwindCreate(ctx context.Context, name string, id int64) {
	if err := e.client.Del(ctx, e.userKey(name)).Err(); err != nil {
		e.logger.Warn("cannot unwind user record", zap.String("user", name), zap.Error(err))
	}
	if id == 0 {
		return
	}
	if err := e.client.Del(ctx, e.idKey(id)).Err(); err != nil {
		e.logger.Warn("cannot unwind id index", zap.Int64("id", id), zap.Error(err))
	}
	if err := e.client.ZRem(ctx, e.listKey(), id).Err(); err != nil {
		e.logger.Warn("cannot unwind list membership", zap.Int64("id", id), zap.Error(err))
	}
}

// DeleteUser removes the record, the id index and the list membership, in
// that order so the account disappears from reads first. Individual failures
// are logged and do not abort the remaining steps.
func (e *RedisEntity) DeleteUser(ctx context.Context, id int64) error {
	name, err := e.client.Get(ctx, e.idKey(id)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		e.logger.Warn("id index entry not found", zap.Int64("id", id))
	case err != nil:
		e.logger.Warn("cannot read id index", zap.Int64("id", id), zap.Error(err))
	default:
		if err := e.client.Del(ctx, e.userKey(name)).Err(); err != nil {
			e.logger.Warn("cannot delete user record", zap.String("user", name), zap.Error(err))
		}
	}

	if err := e.client.Del(ctx, e.idKey(id)).Err(); err != nil {
		e.logger.Warn("cannot delete id index", zap.Int64("id", id), zap.Error(err))
	}
	if err := e.client.ZRem(ctx, e.listKey(), id).Err(); err != nil {
		e.logger.Warn("cannot delete list membership", zap.Int64("id", id), zap.Error(err))
	}
	return nil
}

// ListUsers pages through accounts in ascending creation order. Entries
// whose backing record has vanished are skipped and logged.
func (e *RedisEntity) ListUsers(ctx context.Context, from, count int64) ([]domain.User, error) {
	users := []domain.User{}
	if from < 0 || count <= 0 {
		return users, nil
	}

	// A stop rank that wraps negative would read as end-relative in Redis.
	stop := from + count - 1
	if stop < from {
		stop = math.MaxInt64
	}
	ids, err := e.client.ZRange(ctx, e.listKey(), from, stop).Result()
	if err != nil {
		return nil, ioError(err)
	}
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			e.logger.Warn("corrupt list member", zap.String("member", raw))
			continue
		}
		user, err := e.GetUserByID(ctx, id)
		if err != nil {
			e.logger.Warn("listed user not found", zap.Int64("id", id), zap.Error(err))
			continue
		}
		users = append(users, *user)
	}
	return users, nil
}

func (e *RedisEntity) EnableUser(ctx context.Context, name string) (*domain.User, error) {
	return e.setField(ctx, name, fieldStatus, domain.StatusActive.Code())
}

func (e *RedisEntity) DisableUser(ctx context.Context, name string) (*domain.User, error) {
	return e.setField(ctx, name, fieldStatus, domain.StatusDisabled.Code())
}

func (e *RedisEntity) AddUserRole(ctx context.Context, name string, role domain.Role) (*domain.User, error) {
	return e.setField(ctx, name, fieldRole, string(role))
}

func (e *RedisEntity) setField(ctx context.Context, name, field, value string) (*domain.User, error) {
	if _, err := e.GetUserByName(ctx, name); err != nil {
		return nil, err
	}
	if err := e.client.HSet(ctx, e.userKey(name), field, value).Err(); err != nil {
		return nil, ioError(err)
	}
	return e.publicUser(ctx, name)
}

// AddToken binds token to the user in both directions. Value and TTL are
// written atomically per key, so a binding without expiry cannot exist.
func (e *RedisEntity) AddToken(ctx context.Context, name, token string) error {
	if err := e.client.Set(ctx, e.tokenKey(name), token, e.tokenTTL).Err(); err != nil {
		return ioError(err)
	}
	if err := e.client.Set(ctx, e.ownerKey(token), name, e.tokenTTL).Err(); err != nil {
		return ioError(err)
	}
	return nil
}

func (e *RedisEntity) GetToken(ctx context.Context, name string) (string, error) {
	token, err := e.client.Get(ctx, e.tokenKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", ioError(err)
	}
	return token, nil
}

// GetUserByToken resolves a token to its owner and slides the TTL forward on
// success. Owners not in StatusActive yield domain.ErrNotActive.
func (e *RedisEntity) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	name, err := e.client.Get(ctx, e.ownerKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, ioError(err)
	}

	priv, err := e.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if priv.Status != domain.StatusActive {
		return nil, domain.ErrNotActive
	}
	if err := e.AddToken(ctx, name, token); err != nil {
		return nil, err
	}
	user := priv.Public()
	return &user, nil
}

// DeleteToken unbinds the token. The owner is resolved first; a resolution
// failure is surfaced, deletion failures afterwards are only logged.
func (e *RedisEntity) DeleteToken(ctx context.Context, token string) error {
	user, err := e.GetUserByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := e.client.Del(ctx, e.tokenKey(user.Name)).Err(); err != nil {
		e.logger.Warn("cannot delete user token key", zap.String("user", user.Name), zap.Error(err))
	}
	if err := e.client.Del(ctx, e.ownerKey(token)).Err(); err != nil {
		e.logger.Warn("cannot delete token owner key", zap.Error(err))
	}
	return nil
}

func (e *RedisEntity) publicUser(ctx context.Context, name string) (*domain.User, error) {
	priv, err := e.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	user := priv.Public()
	return &user, nil
}
