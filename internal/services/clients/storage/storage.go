// Package storage defines persistence contracts for clients service state.
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

// Client stores one client of the firm.
type Client struct {
	ID          string
	Name        string
	PhoneNumber string
	Email       string
	CreatedAt   time.Time
}

// ClientPage stores a page of clients with the total match count.
type ClientPage struct {
	Clients []Client
	Total   int
}

// Store persists clients.
type Store interface {
	CreateClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id string) (Client, error)
	GetClientByEmail(ctx context.Context, email string) (Client, error)
	ListClients(ctx context.Context, offset, limit int) (ClientPage, error)
	UpdateClient(ctx context.Context, client Client) error
	DeleteClient(ctx context.Context, id string) error
	Close() error
}
