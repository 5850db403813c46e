// Package storage defines persistence contracts for tasks service state.
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

// Task stores one assigned unit of work.
type Task struct {
	ID               string
	Name             string
	Description      string
	Status           string
	DueDate          *time.Time
	AssigneeID       string
	AssigneeUsername string
	AssignedBy       string
	CreatedAt        time.Time
}

// TaskPage stores a page of tasks with the total match count.
type TaskPage struct {
	Tasks []Task
	Total int
}

// Store persists tasks. Task names are unique per assignee.
type Store interface {
	CreateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, offset, limit int) (TaskPage, error)
	ListTasksForAssignee(ctx context.Context, assigneeID string) ([]Task, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error
	Close() error
}
