package domain

import "errors"

// Sentinel errors returned by Entity implementations. Callers match them
// with errors.Is; implementations may wrap them with backend detail.
var (
	ErrDuplicateUsername = errors.New("user with that name already exists")
	ErrNotFound          = errors.New("cannot find user with those parameters")
	ErrIO                = errors.New("storage backend failure")
	ErrAccessDenied      = errors.New("access to this resource is denied")
	ErrNotActive         = errors.New("user is not activated")
	ErrDisabledUser      = errors.New("user is disabled")
)
