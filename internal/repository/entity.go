package repository

import (
	"context"

	"github.com/spec-kit/auth-service/internal/domain"
)

// Entity is the capability contract any identity backend satisfies. Every
// operation returns a value or one of the domain sentinel errors; backend
// connectivity failures surface as domain.ErrIO.
//
// Implementations hold no mutable state beyond their connection handle and
// are safe for concurrent use.
type Entity interface {
	// AddUser registers a new account in StatusCreated with RoleUsers.
	// Returns domain.ErrDuplicateUsername when the name is taken.
	AddUser(ctx context.Context, name, email, password string, attributes map[string]string) (*domain.User, error)

	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// GetUserByName returns the private projection including the password
	// hash; it exists for internal credential checks only.
	GetUserByName(ctx context.Context, name string) (*domain.PrivateUser, error)

	// GetUserByNameAndPassword fails with domain.ErrNotFound for both an
	// unknown name and a wrong password, so the two cases cannot be told
	// apart by callers.
	GetUserByNameAndPassword(ctx context.Context, name, password string) (*domain.User, error)

	// DeleteUser removes an account best-effort: failures of individual
	// key deletions are logged, not surfaced.
	DeleteUser(ctx context.Context, id int64) error

	// ListUsers returns up to count users in ascending creation order,
	// skipping the first from entries. Non-positive count or negative
	// from yields an empty slice.
	ListUsers(ctx context.Context, from, count int64) ([]domain.User, error)

	EnableUser(ctx context.Context, name string) (*domain.User, error)
	DisableUser(ctx context.Context, name string) (*domain.User, error)

	// GetToken returns the token currently bound to the user name.
	GetToken(ctx context.Context, name string) (string, error)

	// AddToken binds token to the user bidirectionally with the token TTL.
	AddToken(ctx context.Context, name, token string) error

	// GetUserByToken resolves the owner of a live token. Fails with
	// domain.ErrNotActive unless the owner is StatusActive; on success the
	// token TTL is refreshed (sliding expiry).
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteToken removes both directions of the binding after resolving
	// the owner; resolution failures are surfaced.
	DeleteToken(ctx context.Context, token string) error

	// AddUserRole overwrites the user's role.
	AddUserRole(ctx context.Context, name string, role domain.Role) (*domain.User, error)
}
