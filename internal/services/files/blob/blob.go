// Package blob defines the blob store contract for case file content.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound indicates the addressed blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store persists opaque file content addressed by object key. Keys are
// generated by the coordinator, never by callers, so a key is written at
// most once.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
