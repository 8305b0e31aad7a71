package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go-api-template/internal/model"
	"go-api-template/pkg/apierror"
)

const (
	msgEmailInUse         = "This email address is already in use"
	msgInvalidCredentials = "Invalid email or password"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, stored string) (bool, error)
}

type tokenIssuer interface {
	Issue(subjectID string, email string, role model.Role) (string, error)
}

type AuthService struct {
	users  userStore
	hasher passwordHasher
	tokens tokenIssuer
	log    *slog.Logger
	now    func() time.Time

	// decoy is verified against when the email is unknown so both login
	// failures cost one key derivation.
	decoy string
}

func NewAuthService(users userStore, hasher passwordHasher, tokens tokenIssuer, log *slog.Logger) (*AuthService, error) {
	if log == nil {
		log = slog.Default()
	}

	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}

	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		decoy:  decoy,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	_, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		s.log.WarnContext(ctx, "registration rejected: email in use", "email", req.Email)
		return model.AuthResult{}, apierror.New(apierror.CodeDuplicateEmail, msgEmailInUse, "", http.StatusBadRequest)
	case !errors.Is(err, model.ErrNotFound):
		return model.AuthResult{}, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthResult{}, fmt.Errorf("register: %w", err)
	}

	result, err := s.authResult(user)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("register: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return model.AuthResult{}, fmt.Errorf("login: %w", err)
		}
		_, _ = s.hasher.Verify(req.Password, s.decoy)
		s.log.WarnContext(ctx, "login failed: unknown email", "email", req.Email)
		return model.AuthResult{}, apierror.Unauthorized(msgInvalidCredentials)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("login: verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		s.log.WarnContext(ctx, "login failed: wrong password", "user_id", user.ID)
		return model.AuthResult{}, apierror.Unauthorized(msgInvalidCredentials)
	}

	result, err := s.authResult(user)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("login: %w", err)
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return result, nil
}

// FindByID resolves the subject of a verified token.
func (s *AuthService) FindByID(ctx context.Context, id string) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *AuthService) authResult(user model.User) (model.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return model.AuthResult{User: user.Public(), Token: token}, nil
}
