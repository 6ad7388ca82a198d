package domain

import "encoding/json"

// UserStatus represents lifecycle states for an account.
type UserStatus int

const (
	StatusCreated UserStatus = iota
	StatusActive
	StatusDisabled
	StatusUnknown
)

// String returns the human-readable status name.
func (s UserStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusActive:
		return "active"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Code returns the numeric code used in persisted records.
func (s UserStatus) Code() string {
	switch s {
	case StatusCreated:
		return "0"
	case StatusActive:
		return "1"
	case StatusDisabled:
		return "2"
	default:
		return "3"
	}
}

// StatusFromCode maps a persisted code back to a status. Unrecognized or
// corrupt values become StatusUnknown rather than an error.
func StatusFromCode(code string) UserStatus {
	switch code {
	case "0":
		return StatusCreated
	case "1":
		return StatusActive
	case "2":
		return StatusDisabled
	default:
		return StatusUnknown
	}
}

// MarshalJSON renders the status by name.
func (s UserStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Role names the single role an account holds. Besides the two well-known
// roles any non-empty string is a valid custom role.
type Role string

const (
	RoleUsers  Role = "users"
	RoleAdmins Role = "admins"
)

// ParseRole maps a stored role value to a Role. Unrecognized values are
// treated as custom roles.
func ParseRole(s string) Role {
	switch s {
	case "users":
		return RoleUsers
	case "admins":
		return RoleAdmins
	default:
		return Role(s)
	}
}

// PrivateUser is the internal projection of an account, carrying the
// password hash. It never leaves the storage and credential-check paths.
type PrivateUser struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	Role         Role
	Attributes   map[string]string
}

// Public strips the password hash for callers outside the store.
func (u PrivateUser) Public() User {
	return User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Status:     u.Status,
		Role:       u.Role,
		Attributes: u.Attributes,
	}
}

// User is the public projection of an account.
type User struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Status     UserStatus        `json:"status"`
	Role       Role              `json:"role"`
	Attributes map[string]string `json:"attributes"`
}
