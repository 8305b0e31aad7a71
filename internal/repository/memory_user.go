package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go-api-template/internal/model"
)

// MemoryUserRepository keeps users in process memory. Used for tests and
// DATABASE_URL=memory:// development runs.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, fmt.Errorf("find user by id: %w", model.ErrUserNotFound)
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return fmt.Errorf("create user: %w", duplicate("users_email_key", nil))
	}
	if _, exists := r.byID[u.ID]; exists {
		return fmt.Errorf("create user: %w", duplicate("users_pkey", nil))
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepository) UpdateRole(_ context.Context, id string, role model.Role, at time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, fmt.Errorf("update user role: %w", model.ErrUserNotFound)
	}
	u.Role = role
	u.UpdatedAt = at.UTC()
	r.byID[id] = u
	return u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("delete user: %w", model.ErrUserNotFound)
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context, offset int, limit int) ([]model.User, int, error) {
	r.mu.RLock()
	users := make([]model.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u)
	}
	r.mu.RUnlock()

	slices.SortFunc(users, func(a, b model.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	total := len(users)
	offset = max(offset, 0)
	if offset >= total {
		return []model.User{}, total, nil
	}
	end := min(offset+limit, total)
	return users[offset:end], total, nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *MemoryUserRepository) CountByRole(_ context.Context, role model.Role) (int, error) {
	return r.countWhere(func(u model.User) bool { return u.Role == role }), nil
}

func (r *MemoryUserRepository) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	return r.countWhere(func(u model.User) bool { return !u.CreatedAt.Before(since) }), nil
}

func (r *MemoryUserRepository) countWhere(match func(model.User) bool) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, u := range r.byID {
		if match(u) {
			n++
		}
	}
	return n
}
