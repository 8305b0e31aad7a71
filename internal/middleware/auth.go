package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-api-template/internal/model"
	"go-api-template/internal/response"
	"go-api-template/pkg/apierror"
)

const (
	msgTokenNotFound = "Authorization failed: Token not found"
	msgInvalidToken  = "Authorization failed: Invalid token"
	msgUserNotFound  = "Authorization failed: User not found"
	msgForbidden     = "You do not have permission for this action"
)

type tokenVerifier interface {
	Verify(tokenString string) (*model.TokenClaims, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	tokens tokenVerifier
	users  userFinder
	errors *response.Translator
}

func NewAuthMiddleware(tokens tokenVerifier, users userFinder, translator *response.Translator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, errors: translator}
}

// RequireAuth verifies the bearer token, re-reads its subject and attaches the
// stored identity to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			m.errors.Error(w, r, apierror.Unauthorized(msgTokenNotFound))
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			m.errors.Error(w, r, apierror.Unauthorized(msgInvalidToken))
			return
		}

		user, err := m.users.FindByID(r.Context(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				m.errors.Error(w, r, apierror.Unauthorized(msgUserNotFound))
				return
			}
			m.errors.Error(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), user.Identity())))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	roleSet := map[model.Role]struct{}{}
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				m.errors.Error(w, r, apierror.Unauthorized(msgUserNotFound))
				return
			}

			if _, allowed := roleSet[identity.Role]; !allowed {
				m.errors.Error(w, r, apierror.Forbidden(msgForbidden))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
