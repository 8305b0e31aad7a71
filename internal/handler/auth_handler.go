package handler

import (
	"context"
	"net/http"

	"go-api-template/internal/model"
	"go-api-template/internal/response"
)

type authenticator interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error)
}

type AuthHandler struct {
	auth     authenticator
	validate validator
	errors   *response.Translator
}

func NewAuthHandler(auth authenticator, validate validator, translator *response.Translator) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validate, errors: translator}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, h.validate, &payload); err != nil {
		h.errors.Error(w, r, err)
		return
	}

	result, err := h.auth.Register(r.Context(), payload)
	if err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "User registration successful", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, h.validate, &payload); err != nil {
		h.errors.Error(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), payload)
	if err != nil {
		h.errors.Error(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", result)
}
