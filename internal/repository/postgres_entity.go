package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// PgxPool is the slice of pgxpool.Pool behavior the backend depends on.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresEntity implements Entity against Postgres. Tokens live in their
// own table with an expiry timestamp instead of a key TTL; expired rows are
// simply ignored by the lookups.
type PostgresEntity struct {
	pool     PgxPool
	tokenTTL time.Duration
	cost     int
	logger   *zap.Logger
}

// NewPostgresEntity builds a Postgres-backed Entity.
func NewPostgresEntity(pool PgxPool, ttl time.Duration, cost int, logger *zap.Logger) *PostgresEntity {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PostgresEntity{pool: pool, tokenTTL: ttl, cost: cost, logger: logger}
}

const userColumns = "id, name, email, password_hash, status, role, attributes"

func scanPrivateUser(row pgx.Row) (*domain.PrivateUser, error) {
	var (
		user   domain.PrivateUser
		status int16
		role   string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&status,
		&role,
		&user.Attributes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, ioError(err)
	}
	user.Status = domain.StatusFromCode(strconv.Itoa(int(status)))
	user.Role = domain.ParseRole(role)
	if user.Attributes == nil {
		user.Attributes = map[string]string{}
	}
	return &user, nil
}

// AddUser relies on the unique index on name as the create-if-absent gate;
// the insert either claims the name or reports a duplicate, with no window
// in between.
func (e *PostgresEntity) AddUser(ctx context.Context, name, email, password string, attributes map[string]string) (*domain.User, error) {
	if attributes == nil {
		attributes = map[string]string{}
	}
	hash, err := auth.HashPassword(password, e.cost)
	if err != nil {
		return nil, err
	}

	const query = `
        INSERT INTO users (name, email, password_hash, status, role, attributes)
        VALUES ($1, $2, $3, 0, 'users', $4)
        ON CONFLICT (name) DO NOTHING
        RETURNING ` + userColumns

	user, err := scanPrivateUser(e.pool.QueryRow(ctx, query, name, email, hash, attributes))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrDuplicateUsername
	}
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (e *PostgresEntity) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = "SELECT " + userColumns + " FROM users WHERE id=$1"
	user, err := scanPrivateUser(e.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (e *PostgresEntity) GetUserByName(ctx context.Context, name string) (*domain.PrivateUser, error) {
	const query = "SELECT " + userColumns + " FROM users WHERE name=$1"
	return scanPrivateUser(e.pool.QueryRow(ctx, query, name))
}

func (e *PostgresEntity) GetUserByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := e.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.ErrNotFound
	}
	public := user.Public()
	return &public, nil
}

// DeleteUser removes the account and its tokens best-effort; failures are
// logged, the call still reports success.
func (e *PostgresEntity) DeleteUser(ctx context.Context, id int64) error {
	if _, err := e.pool.Exec(ctx,
		"DELETE FROM user_tokens WHERE user_name = (SELECT name FROM users WHERE id=$1)", id); err != nil {
		e.logger.Warn("cannot delete user tokens", zap.Int64("id", id), zap.Error(err))
	}

	cmd, err := e.pool.Exec(ctx, "DELETE FROM users WHERE id=$1", id)
	if err != nil {
		e.logger.Warn("cannot delete user row", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	if cmd.RowsAffected() == 0 {
		e.logger.Warn("user row not found", zap.Int64("id", id))
	}
	return nil
}

func (e *PostgresEntity) ListUsers(ctx context.Context, from, count int64) ([]domain.User, error) {
	users := []domain.User{}
	if from < 0 || count <= 0 {
		return users, nil
	}

	const query = "SELECT " + userColumns + " FROM users ORDER BY id ASC OFFSET $1 LIMIT $2"
	rows, err := e.pool.Query(ctx, query, from, count)
	if err != nil {
		return nil, ioError(err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanPrivateUser(rows)
		if err != nil {
			e.logger.Warn("cannot scan listed user", zap.Error(err))
			continue
		}
		users = append(users, user.Public())
	}
	if err := rows.Err(); err != nil {
		return nil, ioError(err)
	}
	return users, nil
}

func (e *PostgresEntity) EnableUser(ctx context.Context, name string) (*domain.User, error) {
	return e.updateUser(ctx, "UPDATE users SET status=1 WHERE name=$1 RETURNING "+userColumns, name)
}

func (e *PostgresEntity) DisableUser(ctx context.Context, name string) (*domain.User, error) {
	return e.updateUser(ctx, "UPDATE users SET status=2 WHERE name=$1 RETURNING "+userColumns, name)
}

func (e *PostgresEntity) AddUserRole(ctx context.Context, name string, role domain.Role) (*domain.User, error) {
	return e.updateUser(ctx, "UPDATE users SET role=$2 WHERE name=$1 RETURNING "+userColumns, name, string(role))
}

func (e *PostgresEntity) updateUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanPrivateUser(e.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// AddToken binds the token in both directions: the token row is keyed by
// token, and the per-user row is replaced so the name always points at the
// latest token.
func (e *PostgresEntity) AddToken(ctx context.Context, name, token string) error {
	expires := time.Now().Add(e.tokenTTL)
	const query = `
        INSERT INTO user_tokens (token, user_name, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (token) DO UPDATE SET user_name = $2, expires_at = $3`
	if _, err := e.pool.Exec(ctx, query, token, name, expires); err != nil {
		return ioError(err)
	}
	return nil
}

func (e *PostgresEntity) GetToken(ctx context.Context, name string) (string, error) {
	const query = `
        SELECT token FROM user_tokens
        WHERE user_name=$1 AND expires_at > NOW()
        ORDER BY expires_at DESC LIMIT 1`
	var token string
	if err := e.pool.QueryRow(ctx, query, name).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", ioError(err)
	}
	return token, nil
}

func (e *PostgresEntity) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	var name string
	err := e.pool.QueryRow(ctx,
		"SELECT user_name FROM user_tokens WHERE token=$1 AND expires_at > NOW()", token).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, ioError(err)
	}

	user, err := e.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.StatusActive {
		return nil, domain.ErrNotActive
	}

	// Sliding expiry.
	if _, err := e.pool.Exec(ctx,
		"UPDATE user_tokens SET expires_at=$2 WHERE token=$1", token, time.Now().Add(e.tokenTTL)); err != nil {
		return nil, ioError(err)
	}
	public := user.Public()
	return &public, nil
}

func (e *PostgresEntity) DeleteToken(ctx context.Context, token string) error {
	user, err := e.GetUserByToken(ctx, token)
	if err != nil {
		return err
	}

	var cmd pgconn.CommandTag
	cmd, err = e.pool.Exec(ctx, "DELETE FROM user_tokens WHERE token=$1", token)
	if err != nil {
		e.logger.Warn("cannot delete token row", zap.String("user", user.Name), zap.Error(err))
		return nil
	}
	if cmd.RowsAffected() == 0 {
		e.logger.Warn("token row already gone", zap.String("user", user.Name))
	}
	return nil
}
