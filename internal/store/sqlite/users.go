// internal/store/sqlite/users.go
//
// SQLite user store backing registration and login.
// Email is unique; a constraint violation maps to auth.ErrEmailTaken and a
// missing row to auth.ErrUserNotFound.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
)

// UserStore implements auth.UserStore over the users table.
type UserStore struct {
	db *sql.DB
}

// NewUserStore returns a UserStore sharing d's handle.
func NewUserStore(d *DB) *UserStore {
	return &UserStore{db: d.SQL}
}

// CreateUser inserts u; a duplicate email maps to auth.ErrEmailTaken.
func (s *UserStore) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail looks a user up by email (case-insensitive column collation).
func (s *UserStore) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email=?`, email)
	return scanUser(row)
}

// UserByID looks a user up by id.
func (s *UserStore) UserByID(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}
