// Package sqlite provides a SQLite-backed users storage implementation.
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
	"github.com/casebooklabs/casebook/internal/services/users/storage"
	"github.com/casebooklabs/casebook/internal/services/users/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists users state in SQLite.
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

// Open opens a SQLite users store and applies embedded migrations.
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

// CreateUser inserts one user record.
func (s *Store) CreateUser(ctx context.Context, user storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("username is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, full_name, phone_number, password_hash, role_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.PhoneNumber,
		user.PasswordHash,
		user.RoleID,
		toMillis(user.CreatedAt),
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, full_name, phone_number, password_hash, role_id, created_at`

func scanUser(row *sql.Row) (storage.User, error) {
	var user storage.User
	var createdAt int64
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PhoneNumber,
		&user.PasswordHash,
		&user.RoleID,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	return s.getUserWhere(ctx, "id = ?", id, "user id is required")
}

// GetUserByUsername returns one user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	return s.getUserWhere(ctx, "username = ?", username, "username is required")
}

// GetUserByEmail returns one user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return s.getUserWhere(ctx, "email = ?", email, "email is required")
}

func (s *Store) getUserWhere(ctx context.Context, where, value, missing string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return storage.User{}, fmt.Errorf("%s", missing)
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, value)
	return scanUser(row)
}

// ListUsers returns one offset-addressed page of users with the total count.
func (s *Store) ListUsers(ctx context.Context, offset, limit int) (storage.UserPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.UserPage{}, fmt.Errorf("limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return storage.UserPage{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	page := storage.UserPage{Total: total}
	for rows.Next() {
		var user storage.User
		var createdAt int64
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FullName,
			&user.PhoneNumber,
			&user.PasswordHash,
			&user.RoleID,
			&createdAt,
		); err != nil {
			return storage.UserPage{}, fmt.Errorf("scan user: %w", err)
		}
		user.CreatedAt = fromMillis(createdAt)
		page.Users = append(page.Users, user)
	}
	if err := rows.Err(); err != nil {
		return storage.UserPage{}, fmt.Errorf("iterate users: %w", err)
	}
	return page, nil
}

// UpdateUser rewrites the mutable fields of one user record.
func (s *Store) UpdateUser(ctx context.Context, user storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET full_name = ?, phone_number = ?, password_hash = ?, role_id = ? WHERE id = ?`,
		user.FullName,
		user.PhoneNumber,
		user.PasswordHash,
		user.RoleID,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser removes one user record.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("user id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateRole inserts one role record.
func (s *Store) CreateRole(ctx context.Context, role storage.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(role.ID) == "" {
		return fmt.Errorf("role id is required")
	}
	if strings.TrimSpace(role.Name) == "" {
		return fmt.Errorf("role name is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO roles (id, name) VALUES (?, ?)`,
		role.ID,
		role.Name,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// GetRole returns one role by id.
func (s *Store) GetRole(ctx context.Context, id string) (storage.Role, error) {
	if err := ctx.Err(); err != nil {
		return storage.Role{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Role{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Role{}, fmt.Errorf("role id is required")
	}

	var role storage.Role
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id, name FROM roles WHERE id = ?`, id).
		Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Role{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Role{}, fmt.Errorf("scan role: %w", err)
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]storage.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []storage.Role
	for rows.Next() {
		var role storage.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}
