package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-api-template/internal/middleware"
	"go-api-template/internal/model"
	"go-api-template/internal/response"
	"go-api-template/pkg/apierror"
)

type userAdmin interface {
	Dashboard(ctx context.Context) (model.Dashboard, error)
	List(ctx context.Context, page int, limit int) (model.UserPage, error)
	UpdateRole(ctx context.Context, id string, role model.Role, actorID string) (model.PublicUser, error)
	Delete(ctx context.Context, id string, actorID string) error
}

type UserHandler struct {
	users    userAdmin
	validate validator
	errors   *response.Translator
}

func NewUserHandler(users userAdmin, validate validator, translator *response.Translator) *UserHandler {
	return &UserHandler{users: users, validate: validate, errors: translator}
}

// Me returns the identity resolved by the auth middleware.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.errors.Error(w, r, apierror.Unauthorized("Authorization failed: User not found"))
		return
	}

	response.Success(w, http.StatusOK, "", identity)
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.users.Dashboard(r.Context())
	if err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Admin dashboard successfully fetched", dashboard)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var fields []apierror.FieldError
	page, ok := queryInt(r, "page")
	if !ok {
		fields = append(fields, apierror.FieldError{Path: "page", Message: "page must be a positive integer"})
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		fields = append(fields, apierror.FieldError{Path: "limit", Message: "limit must be a positive integer"})
	}
	if len(fields) > 0 {
		h.errors.Error(w, r, apierror.Validation("", fields))
		return
	}

	result, err := h.users.List(r.Context(), page, limit)
	if err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, result.Users, &result.Meta)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	var payload model.UpdateRoleRequest
	if err := decodeJSON(w, r, h.validate, &payload); err != nil {
		h.errors.Error(w, r, err)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), chi.URLParam(r, "id"), payload.Role, identity.ID)
	if err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "User role updated successfully", user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id"), identity.ID); err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "User deleted successfully", nil)
}

// queryInt reads an optional positive integer; absent yields 0.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
