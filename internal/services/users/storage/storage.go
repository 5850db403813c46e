// Package storage defines persistence contracts for users service state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a uniqueness constraint was violated.
var ErrConflict = errors.New("record already exists")

// User stores one employee account. PasswordHash never crosses the wire.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PhoneNumber  string
	PasswordHash string
	RoleID       string
	CreatedAt    time.Time
}

// Role stores one assignable role.
type Role struct {
	ID   string
	Name string
}

// UserPage stores a page of users with the total match count.
type UserPage struct {
	Users []User
	Total int
}

// Store persists users and roles.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, offset, limit int) (UserPage, error)
	UpdateUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, id string) error

	CreateRole(ctx context.Context, role Role) error
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)

	Close() error
}
