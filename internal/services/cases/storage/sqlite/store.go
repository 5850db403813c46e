// Package sqlite provides a SQLite-backed cases storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/casebooklabs/casebook/internal/platform/storage/sqlitemigrate"
	"github.com/casebooklabs/casebook/internal/services/cases/storage"
	"github.com/casebooklabs/casebook/internal/services/cases/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists cases state in SQLite.
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

// Open opens a SQLite cases store and applies embedded migrations.
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

const caseColumns = `id, title, number, type, status, filed_date, hearing_date,
	assigned_judge, plaintiffs, defendants, notes, client_id, client_name,
	assignee_id, assignee_username, assigned_by`

func encodeNotes(notes []storage.Note) (string, error) {
	if len(notes) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encode notes: %w", err)
	}
	return string(raw), nil
}

// CreateCase inserts one case record.
func (s *Store) CreateCase(ctx context.Context, c storage.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("case id is required")
	}
	if strings.TrimSpace(c.Number) == "" {
		return fmt.Errorf("case number is required")
	}

	notes, err := encodeNotes(c.Notes)
	if err != nil {
		return err
	}
	var hearing any
	if c.HearingDate != nil {
		hearing = toMillis(*c.HearingDate)
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cases (`+caseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Title,
		c.Number,
		c.Type,
		c.Status,
		toMillis(c.FiledDate),
		hearing,
		c.AssignedJudge,
		c.Plaintiffs,
		c.Defendants,
		notes,
		c.ClientID,
		c.ClientName,
		c.AssigneeID,
		c.AssigneeUsername,
		c.AssignedBy,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

type caseScanner interface {
	Scan(dest ...any) error
}

func scanCase(row caseScanner) (storage.Case, error) {
	var c storage.Case
	var filed int64
	var hearing sql.NullInt64
	var notes string
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Number,
		&c.Type,
		&c.Status,
		&filed,
		&hearing,
		&c.AssignedJudge,
		&c.Plaintiffs,
		&c.Defendants,
		&notes,
		&c.ClientID,
		&c.ClientName,
		&c.AssigneeID,
		&c.AssigneeUsername,
		&c.AssignedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Case{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Case{}, fmt.Errorf("scan case: %w", err)
	}
	c.FiledDate = fromMillis(filed)
	if hearing.Valid {
		at := fromMillis(hearing.Int64)
		c.HearingDate = &at
	}
	if err := json.Unmarshal([]byte(notes), &c.Notes); err != nil {
		return storage.Case{}, fmt.Errorf("decode notes: %w", err)
	}
	return c, nil
}

// GetCase returns one case by id.
func (s *Store) GetCase(ctx context.Context, id string) (storage.Case, error) {
	return s.getCaseWhere(ctx, "id = ?", id, "case id is required")
}

// GetCaseByNumber returns one case by its unique number.
func (s *Store) GetCaseByNumber(ctx context.Context, number string) (storage.Case, error) {
	return s.getCaseWhere(ctx, "number = ?", number, "case number is required")
}

func (s *Store) getCaseWhere(ctx context.Context, where, value, missing string) (storage.Case, error) {
	if err := ctx.Err(); err != nil {
		return storage.Case{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Case{}, fmt.Errorf("storage is not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return storage.Case{}, fmt.Errorf("%s", missing)
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE `+where, value)
	return scanCase(row)
}

// ListCases returns one offset-addressed page of cases with the total count.
func (s *Store) ListCases(ctx context.Context, offset, limit int) (storage.CasePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.CasePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CasePage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.CasePage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`).Scan(&total); err != nil {
		return storage.CasePage{}, fmt.Errorf("count cases: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+caseColumns+` FROM cases ORDER BY filed_date DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.CasePage{}, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	page := storage.CasePage{Total: total}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return storage.CasePage{}, err
		}
		page.Cases = append(page.Cases, c)
	}
	if err := rows.Err(); err != nil {
		return storage.CasePage{}, fmt.Errorf("iterate cases: %w", err)
	}
	return page, nil
}

// UpdateCase rewrites the mutable fields of one case record.
func (s *Store) UpdateCase(ctx context.Context, c storage.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("case id is required")
	}

	notes, err := encodeNotes(c.Notes)
	if err != nil {
		return err
	}
	var hearing any
	if c.HearingDate != nil {
		hearing = toMillis(*c.HearingDate)
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE cases SET title = ?, type = ?, status = ?, hearing_date = ?,
		   assigned_judge = ?, plaintiffs = ?, defendants = ?, notes = ?,
		   assignee_id = ?, assignee_username = ?, assigned_by = ?
		 WHERE id = ?`,
		c.Title,
		c.Type,
		c.Status,
		hearing,
		c.AssignedJudge,
		c.Plaintiffs,
		c.Defendants,
		notes,
		c.AssigneeID,
		c.AssigneeUsername,
		c.AssignedBy,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCase removes one case record.
func (s *Store) DeleteCase(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("case id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUpcomingHearings returns cases with a hearing at or after from.
func (s *Store) ListUpcomingHearings(ctx context.Context, assigneeID string, from time.Time) ([]storage.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT ` + caseColumns + ` FROM cases WHERE hearing_date IS NOT NULL AND hearing_date >= ?`
	args := []any{toMillis(from)}
	if assigneeID = strings.TrimSpace(assigneeID); assigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, assigneeID)
	}
	query += ` ORDER BY hearing_date, id`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hearings: %w", err)
	}
	defer rows.Close()

	var cases []storage.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hearings: %w", err)
	}
	return cases, nil
}
