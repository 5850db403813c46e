// Package sqlite provides a SQLite-backed appointments storage implementation.
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
	"github.com/casebooklabs/casebook/internal/services/appointments/storage"
	"github.com/casebooklabs/casebook/internal/services/appointments/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists appointments state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite appointments store and applies embedded migrations.
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

const appointmentColumns = `id, title, start_at, end_at, location, notes,
	assignee_id, assignee_username, client_id, client_name, case_id, case_number, booked_by`

// CreateAppointment inserts one booking.
func (s *Store) CreateAppointment(ctx context.Context, a storage.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("appointment id is required")
	}
	if strings.TrimSpace(a.AssigneeID) == "" {
		return fmt.Errorf("assignee id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO appointments (`+appointmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Title,
		toMillis(a.Start),
		toMillis(a.End),
		a.Location,
		a.Notes,
		a.AssigneeID,
		a.AssigneeUsername,
		a.ClientID,
		a.ClientName,
		a.CaseID,
		a.CaseNumber,
		a.BookedBy,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

type appointmentScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row appointmentScanner) (storage.Appointment, error) {
	var a storage.Appointment
	var start, end int64
	err := row.Scan(
		&a.ID,
		&a.Title,
		&start,
		&end,
		&a.Location,
		&a.Notes,
		&a.AssigneeID,
		&a.AssigneeUsername,
		&a.ClientID,
		&a.ClientName,
		&a.CaseID,
		&a.CaseNumber,
		&a.BookedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Appointment{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Appointment{}, fmt.Errorf("scan appointment: %w", err)
	}
	a.Start = fromMillis(start)
	a.End = fromMillis(end)
	return a, nil
}

// GetAppointment returns one booking by id.
func (s *Store) GetAppointment(ctx context.Context, id string) (storage.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return storage.Appointment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Appointment{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Appointment{}, fmt.Errorf("appointment id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	return scanAppointment(row)
}

// ListAppointments returns one offset-addressed page of bookings.
func (s *Store) ListAppointments(ctx context.Context, offset, limit int) (storage.AppointmentPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.AppointmentPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AppointmentPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.AppointmentPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return storage.AppointmentPage{}, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+appointmentColumns+` FROM appointments ORDER BY start_at, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.AppointmentPage{}, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	page := storage.AppointmentPage{Total: total}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return storage.AppointmentPage{}, err
		}
		page.Appointments = append(page.Appointments, a)
	}
	if err := rows.Err(); err != nil {
		return storage.AppointmentPage{}, fmt.Errorf("iterate appointments: %w", err)
	}
	return page, nil
}

// ListAppointmentsForAssignee returns every booking on one calendar,
// earliest first.
func (s *Store) ListAppointmentsForAssignee(ctx context.Context, assigneeID string) ([]storage.Appointment, error) {
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
		`SELECT `+appointmentColumns+` FROM appointments WHERE assignee_id = ? ORDER BY start_at, id`,
		assigneeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignee appointments: %w", err)
	}
	defer rows.Close()

	var appointments []storage.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignee appointments: %w", err)
	}
	return appointments, nil
}

// SearchAppointmentsByTitle returns bookings whose title contains the term,
// earliest first. Matching is case-insensitive.
func (s *Store) SearchAppointmentsByTitle(ctx context.Context, term string) ([]storage.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("search term is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE title LIKE '%' || ? || '%' ORDER BY start_at, id`,
		term,
	)
	if err != nil {
		return nil, fmt.Errorf("search appointments: %w", err)
	}
	defer rows.Close()

	var appointments []storage.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return appointments, nil
}

// UpdateAppointment rewrites the mutable fields of one booking.
func (s *Store) UpdateAppointment(ctx context.Context, a storage.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("appointment id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE appointments SET title = ?, start_at = ?, end_at = ?, location = ?, notes = ?
		 WHERE id = ?`,
		a.Title,
		toMillis(a.Start),
		toMillis(a.End),
		a.Location,
		a.Notes,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteAppointment removes one booking.
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("appointment id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
