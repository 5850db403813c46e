// Package sqlite provides a SQLite-backed visitors storage implementation.
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
	"github.com/casebooklabs/casebook/internal/services/visitors/storage"
	"github.com/casebooklabs/casebook/internal/services/visitors/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists visitors state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite visitors store and applies embedded migrations.
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

const visitorColumns = `id, full_name, phone_number, purpose_of_visit, who_to_see,
	time_in, time_out, recorded_by`

// CreateVisitor inserts one visit record.
func (s *Store) CreateVisitor(ctx context.Context, v storage.Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("visitor id is required")
	}
	if strings.TrimSpace(v.FullName) == "" {
		return fmt.Errorf("visitor name is required")
	}

	var timeOut any
	if v.TimeOut != nil {
		timeOut = toMillis(*v.TimeOut)
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO visitors (`+visitorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.FullName,
		v.PhoneNumber,
		v.PurposeOfVisit,
		v.WhoToSee,
		toMillis(v.TimeIn),
		timeOut,
		v.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("insert visitor: %w", err)
	}
	return nil
}

type visitorScanner interface {
	Scan(dest ...any) error
}

func scanVisitor(row visitorScanner) (storage.Visitor, error) {
	var v storage.Visitor
	var timeIn int64
	var timeOut sql.NullInt64
	err := row.Scan(
		&v.ID,
		&v.FullName,
		&v.PhoneNumber,
		&v.PurposeOfVisit,
		&v.WhoToSee,
		&timeIn,
		&timeOut,
		&v.RecordedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Visitor{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Visitor{}, fmt.Errorf("scan visitor: %w", err)
	}
	v.TimeIn = fromMillis(timeIn)
	if timeOut.Valid {
		at := fromMillis(timeOut.Int64)
		v.TimeOut = &at
	}
	return v, nil
}

// GetVisitor returns one visit record by id.
func (s *Store) GetVisitor(ctx context.Context, id string) (storage.Visitor, error) {
	if err := ctx.Err(); err != nil {
		return storage.Visitor{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Visitor{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Visitor{}, fmt.Errorf("visitor id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitors WHERE id = ?`, id)
	return scanVisitor(row)
}

// ListVisitors returns one offset-addressed page of visits, newest first.
func (s *Store) ListVisitors(ctx context.Context, offset, limit int) (storage.VisitorPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.VisitorPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.VisitorPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.VisitorPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&total); err != nil {
		return storage.VisitorPage{}, fmt.Errorf("count visitors: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+visitorColumns+` FROM visitors ORDER BY time_in DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.VisitorPage{}, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	page := storage.VisitorPage{Total: total}
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return storage.VisitorPage{}, err
		}
		page.Visitors = append(page.Visitors, v)
	}
	if err := rows.Err(); err != nil {
		return storage.VisitorPage{}, fmt.Errorf("iterate visitors: %w", err)
	}
	return page, nil
}

// SearchVisitorsByName returns visits whose full name contains the term,
// newest first.
func (s *Store) SearchVisitorsByName(ctx context.Context, name string) ([]storage.Visitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("visitor name is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE full_name LIKE '%' || ? || '%' ORDER BY time_in DESC, id`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("search visitors: %w", err)
	}
	defer rows.Close()

	var visitors []storage.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitors: %w", err)
	}
	return visitors, nil
}

// UpdateVisitor rewrites the mutable fields of one visit record.
func (s *Store) UpdateVisitor(ctx context.Context, v storage.Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("visitor id is required")
	}

	var timeOut any
	if v.TimeOut != nil {
		timeOut = toMillis(*v.TimeOut)
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE visitors SET full_name = ?, phone_number = ?, purpose_of_visit = ?,
		   who_to_see = ?, time_out = ?
		 WHERE id = ?`,
		v.FullName,
		v.PhoneNumber,
		v.PurposeOfVisit,
		v.WhoToSee,
		timeOut,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update visitor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update visitor rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteVisitor removes one visit record.
func (s *Store) DeleteVisitor(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("visitor id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM visitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete visitor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete visitor rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
