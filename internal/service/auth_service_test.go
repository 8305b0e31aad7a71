package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-api-template/internal/model"
	"go-api-template/internal/password"
	"go-api-template/internal/repository"
	"go-api-template/internal/token"
	"go-api-template/pkg/apierror"
)

type countingHasher struct {
	*password.Hasher
	hashes atomic.Int32
}

func (h *countingHasher) Hash(pw string) (string, error) {
	h.hashes.Add(1)
	return h.Hasher.Hash(pw)
}

type authFixture struct {
	svc    *AuthService
	repo   *repository.MemoryUserRepository
	hasher *countingHasher
	tokens *token.Issuer
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	repo := repository.NewMemoryUserRepository()
	hasher := &countingHasher{Hasher: password.NewHasher(password.WithCost(1024, 8, 1))}
	tokens, err := token.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	svc, err := NewAuthService(repo, hasher, tokens, nil)
	require.NoError(t, err)
	hasher.hashes.Store(0)

	return authFixture{svc: svc, repo: repo, hasher: hasher, tokens: tokens}
}

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.HTTPStatus)
	assert.Equal(t, message, apiErr.Message)
}

func TestAuthServiceRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates a USER and issues a token for it", func(t *testing.T) {
		f := newAuthFixture(t)
		name := "Grace"

		result, err := f.svc.Register(context.Background(), model.RegisterRequest{
			Email: "grace@example.com", Password: "Passw0rd!", Name: &name,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, result.User.ID)
		assert.Equal(t, "grace@example.com", result.User.Email)
		assert.Equal(t, model.RoleUser, result.User.Role)
		require.NotNil(t, result.User.Name)
		assert.Equal(t, "Grace", *result.User.Name)

		claims, err := f.tokens.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, claims.SubjectID)
		assert.Equal(t, model.RoleUser, claims.Role)

		stored, err := f.repo.FindByID(context.Background(), result.User.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "Passw0rd!", stored.PasswordHash)
		ok, err := f.hasher.Verify("Passw0rd!", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate email is rejected without hashing", func(t *testing.T) {
		f := newAuthFixture(t)
		ctx := context.Background()

		first, err := f.svc.Register(ctx, model.RegisterRequest{Email: "dup@example.com", Password: "Passw0rd!"})
		require.NoError(t, err)
		require.EqualValues(t, 1, f.hasher.hashes.Load())

		_, err = f.svc.Register(ctx, model.RegisterRequest{Email: "dup@example.com", Password: "0therPass"})
		requireAPIError(t, err, http.StatusBadRequest, "This email address is already in use")
		assert.EqualValues(t, 1, f.hasher.hashes.Load())

		stored, err := f.repo.FindByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, stored.ID)
		ok, err := f.hasher.Verify("Passw0rd!", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok, "first user's credentials are unaffected")
	})
}

// racingStore reports no user on lookup but rejects the insert, as a concurrent
// registration would.
type racingStore struct {
	*repository.MemoryUserRepository
}

func (racingStore) FindByEmail(context.Context, string) (model.User, error) {
	return model.User{}, model.ErrUserNotFound
}

func (racingStore) Create(context.Context, model.User) error {
	return &model.DuplicateKeyError{Constraint: "email"}
}

func TestAuthServiceRegisterRaceSurfacesDuplicate(t *testing.T) {
	t.Parallel()

	hasher := password.NewHasher(password.WithCost(1024, 8, 1))
	tokens, err := token.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	svc, err := NewAuthService(racingStore{repository.NewMemoryUserRepository()}, hasher, tokens, nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), model.RegisterRequest{Email: "x@example.com", Password: "Passw0rd!"})
	var dup *model.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Constraint)
}

func TestAuthServiceLogin(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, model.RegisterRequest{Email: "lin@example.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		result, err := f.svc.Login(ctx, model.LoginRequest{Email: "lin@example.com", Password: "Passw0rd!"})
		require.NoError(t, err)
		assert.Equal(t, registered.User, result.User)

		claims, err := f.tokens.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, claims.SubjectID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, unknownErr := f.svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "Passw0rd!"})
		_, wrongErr := f.svc.Login(ctx, model.LoginRequest{Email: "lin@example.com", Password: "wrong-Passw0rd"})

		requireAPIError(t, unknownErr, http.StatusUnauthorized, "Invalid email or password")
		requireAPIError(t, wrongErr, http.StatusUnauthorized, "Invalid email or password")
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})
}

type brokenStore struct {
	*repository.MemoryUserRepository
}

func (brokenStore) FindByEmail(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("connection refused")
}

func TestAuthServiceStoreFailureIsNotMaskedAsCredentials(t *testing.T) {
	t.Parallel()

	hasher := password.NewHasher(password.WithCost(1024, 8, 1))
	tokens, err := token.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	svc, err := NewAuthService(brokenStore{repository.NewMemoryUserRepository()}, hasher, tokens, nil)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "x"})
	require.Error(t, err)
	var apiErr *apierror.APIError
	assert.False(t, errors.As(err, &apiErr))
}
