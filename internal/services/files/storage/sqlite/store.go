// Package sqlite provides a SQLite-backed file metadata store.
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
	"github.com/casebooklabs/casebook/internal/services/files/storage"
	"github.com/casebooklabs/casebook/internal/services/files/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists file metadata in SQLite.
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

// Open opens a SQLite files store and applies embedded migrations.
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

const fileColumns = `id, file_name, content_type, size, object_key, uploaded_by,
	uploaded_at, client_id, client_name, case_id, case_number, case_title`

// CreateFile inserts one metadata record.
func (s *Store) CreateFile(ctx context.Context, f storage.FileMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("file id is required")
	}
	if strings.TrimSpace(f.FileName) == "" {
		return fmt.Errorf("file name is required")
	}
	if strings.TrimSpace(f.ObjectKey) == "" {
		return fmt.Errorf("object key is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.FileName,
		f.ContentType,
		f.Size,
		f.ObjectKey,
		f.UploadedBy,
		toMillis(f.UploadedAt),
		f.ClientID,
		f.ClientName,
		f.CaseID,
		f.CaseNumber,
		f.CaseTitle,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

type fileScanner interface {
	Scan(dest ...any) error
}

func scanFile(row fileScanner) (storage.FileMetadata, error) {
	var f storage.FileMetadata
	var uploadedAt int64
	err := row.Scan(
		&f.ID,
		&f.FileName,
		&f.ContentType,
		&f.Size,
		&f.ObjectKey,
		&f.UploadedBy,
		&uploadedAt,
		&f.ClientID,
		&f.ClientName,
		&f.CaseID,
		&f.CaseNumber,
		&f.CaseTitle,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.FileMetadata{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.FileMetadata{}, fmt.Errorf("scan file: %w", err)
	}
	f.UploadedAt = fromMillis(uploadedAt)
	return f, nil
}

// GetFile returns one metadata record by id.
func (s *Store) GetFile(ctx context.Context, id string) (storage.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return storage.FileMetadata{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.FileMetadata{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.FileMetadata{}, fmt.Errorf("file id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// ListFiles returns one offset-addressed page of metadata with the total count.
func (s *Store) ListFiles(ctx context.Context, offset, limit int) (storage.FilePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.FilePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.FilePage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.FilePage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&total); err != nil {
		return storage.FilePage{}, fmt.Errorf("count files: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files ORDER BY uploaded_at DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.FilePage{}, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	page := storage.FilePage{Total: total}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return storage.FilePage{}, err
		}
		page.Files = append(page.Files, f)
	}
	if err := rows.Err(); err != nil {
		return storage.FilePage{}, fmt.Errorf("iterate files: %w", err)
	}
	return page, nil
}

// ListFilesForCase returns every metadata record attached to one case.
func (s *Store) ListFilesForCase(ctx context.Context, caseID string) ([]storage.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return nil, fmt.Errorf("case id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files WHERE case_id = ? ORDER BY uploaded_at DESC, id`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list case files: %w", err)
	}
	defer rows.Close()

	var files []storage.FileMetadata
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case files: %w", err)
	}
	return files, nil
}

// SearchFiles returns metadata matching the given criteria, newest first.
// Zero-value criteria fields are ignored; set fields are combined with AND.
func (s *Store) SearchFiles(ctx context.Context, criteria storage.SearchCriteria) ([]storage.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var clauses []string
	var args []any
	if term := strings.TrimSpace(criteria.FileName); term != "" {
		clauses = append(clauses, `file_name LIKE '%' || ? || '%'`)
		args = append(args, term)
	}
	if term := strings.TrimSpace(criteria.ClientName); term != "" {
		clauses = append(clauses, `client_name LIKE '%' || ? || '%'`)
		args = append(args, term)
	}
	if term := strings.TrimSpace(criteria.CaseNumber); term != "" {
		clauses = append(clauses, `case_number LIKE '%' || ? || '%'`)
		args = append(args, term)
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("at least one search criterion is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files WHERE `+strings.Join(clauses, " AND ")+` ORDER BY uploaded_at DESC, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()

	var files []storage.FileMetadata
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// UpdateFile rewrites the mutable fields of one metadata record.
func (s *Store) UpdateFile(ctx context.Context, f storage.FileMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("file id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE files SET file_name = ?, content_type = ?, size = ?, object_key = ?,
		   uploaded_by = ?, uploaded_at = ?
		 WHERE id = ?`,
		f.FileName,
		f.ContentType,
		f.Size,
		f.ObjectKey,
		f.UploadedBy,
		toMillis(f.UploadedAt),
		f.ID,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteFile removes one metadata record.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("file id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
