package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-api-template/internal/database"
	"go-api-template/internal/model"
)

// UserRepository is the persistence contract shared by every storage backend.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) (model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset int, limit int) ([]model.User, int, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role model.Role) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

func NewUserRepository(db *database.DB) (UserRepository, error) {
	switch db.Driver {
	case database.DriverPostgres:
		return NewPostgresUserRepository(db.Pool), nil
	case database.DriverSQLite:
		return NewSQLiteUserRepository(db.SQL), nil
	case database.DriverMemory:
		return NewMemoryUserRepository(), nil
	default:
		return nil, fmt.Errorf("no user repository for driver %q", db.Driver)
	}
}

// constraintField reduces a backend constraint name to the column it guards,
// e.g. users_email_key and users.email both become email.
func constraintField(name string) string {
	name = strings.TrimPrefix(name, "users_")
	name = strings.TrimPrefix(name, "users.")
	name = strings.TrimSuffix(name, "_key")
	return name
}

func duplicate(constraint string, err error) error {
	return &model.DuplicateKeyError{Constraint: constraintField(constraint), Err: err}
}
