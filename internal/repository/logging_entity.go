package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

// LoggingEntity is a delegating wrapper around an Entity. It forwards every
// call unchanged and attaches operation logging and counters, leaving the
// wrapped store free of cross-cutting concerns. Further decorators (caching,
// auditing, rate limiting) compose over the same interface.
type LoggingEntity struct {
	next    Entity
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewLoggingEntity wraps next with logging and metrics.
func NewLoggingEntity(next Entity, logger *zap.Logger, metrics *observability.Metrics) *LoggingEntity {
	return &LoggingEntity{next: next, logger: logger, metrics: metrics}
}

func (l *LoggingEntity) observe(op string, start time.Time, err error) {
	if l.metrics != nil {
		l.metrics.RecordOp(op, err)
	}
	if err != nil {
		l.logger.Warn("entity operation failed",
			zap.String("op", op),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	l.logger.Debug("entity operation",
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)))
}

func (l *LoggingEntity) AddUser(ctx context.Context, name, email, password string, attributes map[string]string) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.AddUser(ctx, name, email, password, attributes)
	l.observe("add_user", start, err)
	return user, err
}

func (l *LoggingEntity) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.GetUserByID(ctx, id)
	l.observe("get_user_by_id", start, err)
	return user, err
}

func (l *LoggingEntity) GetUserByName(ctx context.Context, name string) (*domain.PrivateUser, error) {
	start := time.Now()
	user, err := l.next.GetUserByName(ctx, name)
	l.observe("get_user_by_name", start, err)
	return user, err
}

func (l *LoggingEntity) GetUserByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.GetUserByNameAndPassword(ctx, name, password)
	l.observe("get_user_by_name_and_password", start, err)
	return user, err
}

func (l *LoggingEntity) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()
	err := l.next.DeleteUser(ctx, id)
	l.observe("delete_user", start, err)
	return err
}

func (l *LoggingEntity) ListUsers(ctx context.Context, from, count int64) ([]domain.User, error) {
	start := time.Now()
	users, err := l.next.ListUsers(ctx, from, count)
	l.observe("list_users", start, err)
	return users, err
}

func (l *LoggingEntity) EnableUser(ctx context.Context, name string) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.EnableUser(ctx, name)
	l.observe("enable_user", start, err)
	return user, err
}

func (l *LoggingEntity) DisableUser(ctx context.Context, name string) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.DisableUser(ctx, name)
	l.observe("disable_user", start, err)
	return user, err
}

func (l *LoggingEntity) GetToken(ctx context.Context, name string) (string, error) {
	start := time.Now()
	token, err := l.next.GetToken(ctx, name)
	l.observe("get_token", start, err)
	return token, err
}

func (l *LoggingEntity) AddToken(ctx context.Context, name, token string) error {
	start := time.Now()
	err := l.next.AddToken(ctx, name, token)
	l.observe("add_token", start, err)
	return err
}

func (l *LoggingEntity) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.GetUserByToken(ctx, token)
	l.observe("get_user_by_token", start, err)
	return user, err
}

func (l *LoggingEntity) DeleteToken(ctx context.Context, token string) error {
	start := time.Now()
	err := l.next.DeleteToken(ctx, token)
	l.observe("delete_token", start, err)
	return err
}

func (l *LoggingEntity) AddUserRole(ctx context.Context, name string, role domain.Role) (*domain.User, error) {
	start := time.Now()
	user, err := l.next.AddUserRole(ctx, name, role)
	l.observe("add_user_role", start, err)
	return user, err
}
