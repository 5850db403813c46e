// Package storage defines persistence contracts for cases service state.
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

// Note stores one free-form case annotation.
type Note struct {
	Message string `json:"message"`
}

// Case stores one case with its denormalized client and assignee
// projections. The projections are copied from the owning services at write
// time; a rename there does not rewrite history here.
type Case struct {
	ID               string
	Title            string
	Number           string
	Type             string
	Status           string
	FiledDate        time.Time
	HearingDate      *time.Time
	AssignedJudge    string
	Plaintiffs       string
	Defendants       string
	Notes            []Note
	ClientID         string
	ClientName       string
	AssigneeID       string
	AssigneeUsername string
	AssignedBy       string
}

// CasePage stores a page of cases with the total match count.
type CasePage struct {
	Cases []Case
	Total int
}

// Store persists cases.
type Store interface {
	CreateCase(ctx context.Context, c Case) error
	GetCase(ctx context.Context, id string) (Case, error)
	GetCaseByNumber(ctx context.Context, number string) (Case, error)
	ListCases(ctx context.Context, offset, limit int) (CasePage, error)
	UpdateCase(ctx context.Context, c Case) error
	DeleteCase(ctx context.Context, id string) error

	// ListUpcomingHearings returns cases whose hearing date is at or after
	// from, soonest first. A non-empty assigneeID narrows to one assignee.
	ListUpcomingHearings(ctx context.Context, assigneeID string, from time.Time) ([]Case, error)

	Close() error
}
