package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go-api-template/internal/model"
	"go-api-template/pkg/apierror"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type userAdminStore interface {
	UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) (model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset int, limit int) ([]model.User, int, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role model.Role) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// UserService backs the admin endpoints.
type UserService struct {
	users userAdminStore
	log   *slog.Logger
	now   func() time.Time
}

func NewUserService(users userAdminStore, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, log: log, now: time.Now}
}

func (s *UserService) Dashboard(ctx context.Context) (model.Dashboard, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	admins, err := s.users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.users.CountCreatedSince(ctx, startOfDay)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	return model.Dashboard{Stats: model.DashboardStats{
		TotalUsers:    total,
		AdminUsers:    admins,
		NewUsersToday: today,
	}}, nil
}

func (s *UserService) List(ctx context.Context, page int, limit int) (model.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)

	users, total, err := s.users.List(ctx, pageOffset(page, limit), limit)
	if err != nil {
		return model.UserPage{}, fmt.Errorf("list users: %w", err)
	}

	public := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	return model.UserPage{
		Users: public,
		Meta: model.Meta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// pageOffset saturates at math.MaxInt so a huge page reads past the end
// instead of wrapping negative.
func pageOffset(page int, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func (s *UserService) UpdateRole(ctx context.Context, id string, role model.Role, actorID string) (model.PublicUser, error) {
	if !role.Valid() {
		return model.PublicUser{}, apierror.Validation("", []apierror.FieldError{{
			Path: "role", Message: "Role must be one of: USER ADMIN",
		}})
	}
	if id == actorID {
		return model.PublicUser{}, apierror.New(apierror.CodeBadRequest, "You cannot change your own role", "", http.StatusBadRequest)
	}

	user, err := s.users.UpdateRole(ctx, id, role, s.now().UTC())
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("update role: %w", err)
	}

	s.log.InfoContext(ctx, "user role changed", "user_id", id, "role", role, "actor_id", actorID)
	return user.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, id string, actorID string) error {
	if id == actorID {
		return apierror.New(apierror.CodeBadRequest, "You cannot delete your own account", "", http.StatusBadRequest)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.InfoContext(ctx, "user deleted", "user_id", id, "actor_id", actorID)
	return nil
}
