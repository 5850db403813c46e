// Package storage defines persistence contracts for visitors service state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Visitor stores one front-desk visit.
type Visitor struct {
	ID             string
	FullName       string
	PhoneNumber    string
	PurposeOfVisit string
	WhoToSee       string
	TimeIn         time.Time
	TimeOut        *time.Time
	RecordedBy     string
}

// VisitorPage stores a page of visits with the total match count.
type VisitorPage struct {
	Visitors []Visitor
	Total    int
}

// Store persists visit records.
type Store interface {
	CreateVisitor(ctx context.Context, v Visitor) error
	GetVisitor(ctx context.Context, id string) (Visitor, error)
	ListVisitors(ctx context.Context, offset, limit int) (VisitorPage, error)
	SearchVisitorsByName(ctx context.Context, name string) ([]Visitor, error)
	UpdateVisitor(ctx context.Context, v Visitor) error
	DeleteVisitor(ctx context.Context, id string) error
	Close() error
}
