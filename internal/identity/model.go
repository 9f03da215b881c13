package identity

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrEmailInUse         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a registered credential holder. Account owners and administrators
// share the same record and are told apart by Role.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Role         string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// IsAdmin reports whether the user may use administrative operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials request structure.
type Credentials struct {
	Email       string
	Password    string
	DisplayName string
}
