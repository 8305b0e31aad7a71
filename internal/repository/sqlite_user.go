package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"go-api-template/internal/model"
)

const sqliteUserColumns = `id, email, password_hash, name, role, created_at, updated_at`

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create user: %w", mapSQLiteError(err))
	}
	return nil
}

func (r *SQLiteUserRepository) UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) (model.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), at.UTC(), id)
	if err != nil {
		return model.User{}, fmt.Errorf("update user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.User{}, fmt.Errorf("update user role: %w", model.ErrUserNotFound)
	}
	return r.FindByID(ctx, id)
}

func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete user: %w", model.ErrUserNotFound)
	}
	return nil
}

func (r *SQLiteUserRepository) List(ctx context.Context, offset int, limit int) ([]model.User, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "count users", `SELECT COUNT(*) FROM users`)
}

func (r *SQLiteUserRepository) CountByRole(ctx context.Context, role model.Role) (int, error) {
	return r.count(ctx, "count users by role", `SELECT COUNT(*) FROM users WHERE role = ?`, string(role))
}

func (r *SQLiteUserRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, "count users created since", `SELECT COUNT(*) FROM users WHERE created_at >= ?`, since.UTC())
}

func (r *SQLiteUserRepository) count(ctx context.Context, op string, query string, args ...any) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func scanSQLiteUser(row rowScanner) (model.User, error) {
	var (
		u    model.User
		name sql.NullString
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	u.Role = model.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return duplicate(sqliteConstraint(sqliteErr.Error()), err)
	}
	return err
}

// sqliteConstraint extracts "users.email" from "UNIQUE constraint failed: users.email".
func sqliteConstraint(msg string) string {
	if _, after, ok := strings.Cut(msg, "constraint failed: "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
