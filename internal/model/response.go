package model

import "go-api-template/pkg/apierror"

type APIResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Status  int                   `json:"status,omitempty"`
	Code    string                `json:"code,omitempty"`
	Data    any                   `json:"data,omitempty"`
	Errors  []apierror.FieldError `json:"errors,omitempty"`
	Meta    *Meta                 `json:"meta,omitempty"`

	// Populated outside production only.
	Error string `json:"error,omitempty"`
	Stack string `json:"stack,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
