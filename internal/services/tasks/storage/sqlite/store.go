// Package sqlite provides a SQLite-backed tasks storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/casebooklabs/casebook/internal/platform/storage/sqlitemigrate"
	"github.com/casebooklabs/casebook/internal/services/tasks/storage"
	"github.com/casebooklabs/casebook/internal/services/tasks/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists tasks state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Open opens a SQLite tasks store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const taskColumns = `id, name, description, status, due_date, assignee_id,
	assignee_username, assigned_by, created_at`

// CreateTask inserts one task record.
func (s *Store) CreateTask(ctx context.Context, t storage.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name is required")
	}
	if strings.TrimSpace(t.AssigneeID) == "" {
		return fmt.Errorf("assignee id is required")
	}

	var due any
	if t.DueDate != nil {
		due = toMillis(*t.DueDate)
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Description,
		t.Status,
		due,
		t.AssigneeID,
		t.AssigneeUsername,
		t.AssignedBy,
		toMillis(t.CreatedAt),
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(row taskScanner) (storage.Task, error) {
	var t storage.Task
	var due sql.NullInt64
	var createdAt int64
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Status,
		&due,
		&t.AssigneeID,
		&t.AssigneeUsername,
		&t.AssignedBy,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Task{}, fmt.Errorf("scan task: %w", err)
	}
	if due.Valid {
		at := fromMillis(due.Int64)
		t.DueDate = &at
	}
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

// GetTask returns one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return storage.Task{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Task{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Task{}, fmt.Errorf("task id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListTasks returns one offset-addressed page of tasks with the total count.
func (s *Store) ListTasks(ctx context.Context, offset, limit int) (storage.TaskPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.TaskPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TaskPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.TaskPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&total); err != nil {
		return storage.TaskPage{}, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	page := storage.TaskPage{Total: total}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return storage.TaskPage{}, err
		}
		page.Tasks = append(page.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return storage.TaskPage{}, fmt.Errorf("iterate tasks: %w", err)
	}
	return page, nil
}

// ListTasksForAssignee returns every task assigned to one employee.
func (s *Store) ListTasksForAssignee(ctx context.Context, assigneeID string) ([]storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, fmt.Errorf("assignee id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assignee_id = ? ORDER BY created_at DESC, id`,
		assigneeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignee tasks: %w", err)
	}
	defer rows.Close()

	var tasks []storage.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignee tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask rewrites the mutable fields of one task record.
func (s *Store) UpdateTask(ctx context.Context, t storage.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task id is required")
	}

	var due any
	if t.DueDate != nil {
		due = toMillis(*t.DueDate)
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE tasks SET name = ?, description = ?, status = ?, due_date = ? WHERE id = ?`,
		t.Name,
		t.Description,
		t.Status,
		due,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTask removes one task record.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
