// Package sqlite provides a SQLite-backed clients storage implementation.
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
	"github.com/casebooklabs/casebook/internal/services/clients/storage"
	"github.com/casebooklabs/casebook/internal/services/clients/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists clients state in SQLite.
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

// Open opens a SQLite clients store and applies embedded migrations.
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

// CreateClient inserts one client record.
func (s *Store) CreateClient(ctx context.Context, client storage.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(client.ID) == "" {
		return fmt.Errorf("client id is required")
	}
	if strings.TrimSpace(client.Name) == "" {
		return fmt.Errorf("client name is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO clients (id, name, phone_number, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.PhoneNumber,
		client.Email,
		toMillis(client.CreatedAt),
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func scanClient(row *sql.Row) (storage.Client, error) {
	var client storage.Client
	var createdAt int64
	err := row.Scan(&client.ID, &client.Name, &client.PhoneNumber, &client.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Client{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Client{}, fmt.Errorf("scan client: %w", err)
	}
	client.CreatedAt = fromMillis(createdAt)
	return client, nil
}

// GetClient returns one client by id.
func (s *Store) GetClient(ctx context.Context, id string) (storage.Client, error) {
	if err := ctx.Err(); err != nil {
		return storage.Client{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Client{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Client{}, fmt.Errorf("client id is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, phone_number, email, created_at FROM clients WHERE id = ?`,
		id,
	)
	return scanClient(row)
}

// GetClientByEmail returns one client by exact email.
func (s *Store) GetClientByEmail(ctx context.Context, email string) (storage.Client, error) {
	if err := ctx.Err(); err != nil {
		return storage.Client{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Client{}, fmt.Errorf("storage is not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return storage.Client{}, fmt.Errorf("client email is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, phone_number, email, created_at FROM clients WHERE email = ?`,
		email,
	)
	return scanClient(row)
}

// ListClients returns one offset-addressed page of clients with the total count.
func (s *Store) ListClients(ctx context.Context, offset, limit int) (storage.ClientPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ClientPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ClientPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.ClientPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return storage.ClientPage{}, fmt.Errorf("count clients: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, phone_number, email, created_at FROM clients
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.ClientPage{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	page := storage.ClientPage{Total: total}
	for rows.Next() {
		var client storage.Client
		var createdAt int64
		if err := rows.Scan(&client.ID, &client.Name, &client.PhoneNumber, &client.Email, &createdAt); err != nil {
			return storage.ClientPage{}, fmt.Errorf("scan client: %w", err)
		}
		client.CreatedAt = fromMillis(createdAt)
		page.Clients = append(page.Clients, client)
	}
	if err := rows.Err(); err != nil {
		return storage.ClientPage{}, fmt.Errorf("iterate clients: %w", err)
	}
	return page, nil
}

// UpdateClient rewrites the mutable fields of one client record.
func (s *Store) UpdateClient(ctx context.Context, client storage.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(client.ID) == "" {
		return fmt.Errorf("client id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE clients SET phone_number = ?, email = ? WHERE id = ?`,
		client.PhoneNumber,
		client.Email,
		client.ID,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteClient removes one client record.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("client id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
