// Package storage defines persistence contracts for file metadata.
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

// FileMetadata stores one case file's descriptor. The blob itself lives in
// the blob store under ObjectKey.
type FileMetadata struct {
	ID          string
	FileName    string
	ContentType string
	Size        int64
	ObjectKey   string
	UploadedBy  string
	UploadedAt  time.Time
	ClientID    string
	ClientName  string
	CaseID      string
	CaseNumber  string
	CaseTitle   string
}

// SearchCriteria filters file metadata by partial match. Zero-value fields
// are ignored; set fields are combined with AND.
type SearchCriteria struct {
	FileName   string
	ClientName string
	CaseNumber string
}

// FilePage stores a page of file metadata with the total match count.
type FilePage struct {
	Files []FileMetadata
	Total int
}

// Store persists file metadata. File names are unique within a case.
type Store interface {
	CreateFile(ctx context.Context, f FileMetadata) error
	GetFile(ctx context.Context, id string) (FileMetadata, error)
	ListFiles(ctx context.Context, offset, limit int) (FilePage, error)
	ListFilesForCase(ctx context.Context, caseID string) ([]FileMetadata, error)
	SearchFiles(ctx context.Context, criteria SearchCriteria) ([]FileMetadata, error)
	UpdateFile(ctx context.Context, f FileMetadata) error
	DeleteFile(ctx context.Context, id string) error
	Close() error
}
