// Package sqlite provides a SQLite-backed notifications storage
// implementation.
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
	"github.com/casebooklabs/casebook/internal/services/notifications/storage"
	"github.com/casebooklabs/casebook/internal/services/notifications/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists delivery records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite notifications store and applies embedded migrations.
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

const deliveryColumns = `id, topic, recipient, subject, body, status, last_error, created_at`

// CreateDelivery inserts one delivery record.
func (s *Store) CreateDelivery(ctx context.Context, record storage.DeliveryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("delivery id is required")
	}
	if strings.TrimSpace(record.Topic) == "" {
		return fmt.Errorf("delivery topic is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO deliveries (`+deliveryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Topic,
		record.Recipient,
		record.Subject,
		record.Body,
		string(record.Status),
		record.LastError,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

type deliveryScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row deliveryScanner) (storage.DeliveryRecord, error) {
	var record storage.DeliveryRecord
	var status string
	var createdAt int64
	err := row.Scan(
		&record.ID,
		&record.Topic,
		&record.Recipient,
		&record.Subject,
		&record.Body,
		&status,
		&record.LastError,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DeliveryRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DeliveryRecord{}, fmt.Errorf("scan delivery: %w", err)
	}
	record.Status = storage.DeliveryStatus(status)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// GetDelivery returns one delivery record by id.
func (s *Store) GetDelivery(ctx context.Context, id string) (storage.DeliveryRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.DeliveryRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DeliveryRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.DeliveryRecord{}, fmt.Errorf("delivery id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, id)
	return scanDelivery(row)
}

// ListDeliveries returns one offset-addressed page of delivery records,
// newest first.
func (s *Store) ListDeliveries(ctx context.Context, offset, limit int) (storage.DeliveryPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.DeliveryPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DeliveryPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.DeliveryPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries`).Scan(&total); err != nil {
		return storage.DeliveryPage{}, fmt.Errorf("count deliveries: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+deliveryColumns+` FROM deliveries ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.DeliveryPage{}, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	page := storage.DeliveryPage{Total: total}
	for rows.Next() {
		record, err := scanDelivery(rows)
		if err != nil {
			return storage.DeliveryPage{}, err
		}
		page.Deliveries = append(page.Deliveries, record)
	}
	if err := rows.Err(); err != nil {
		return storage.DeliveryPage{}, fmt.Errorf("iterate deliveries: %w", err)
	}
	return page, nil
}
