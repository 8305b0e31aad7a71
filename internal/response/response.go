// Package response writes the JSON envelopes shared by handlers and middleware
// and translates errors into them.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"go-api-template/internal/model"
	"go-api-template/pkg/apierror"
)

const (
	msgServerError = "Server error"
	msgNotFound    = "Not Found"
)

func JSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithMeta(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	JSON(w, status, model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Translator maps internal failures onto the uniform error envelope. Details
// of unexpected errors are only exposed when debug is set.
type Translator struct {
	debug bool
	log   *slog.Logger
}

func NewTranslator(debug bool, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{debug: debug, log: log}
}

func (t *Translator) Debug() bool {
	return t.debug
}

func (t *Translator) Error(w http.ResponseWriter, r *http.Request, err error) {
	body := t.Translate(err)
	if body.Status >= http.StatusInternalServerError {
		t.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	JSON(w, body.Status, body)
}

func (t *Translator) Translate(err error) model.APIResponse {
	body := model.APIResponse{
		Success: false,
		Status:  http.StatusInternalServerError,
		Code:    apierror.CodeInternal,
		Message: msgServerError,
	}

	var (
		apiErr        *apierror.APIError
		dupErr        *model.DuplicateKeyError
		validationErr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &apiErr):
		body.Status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Errors = apiErr.Fields
	case errors.As(err, &validationErr):
		body.Status = http.StatusBadRequest
		body.Code = apierror.CodeValidation
		body.Message = "Validation error"
		body.Errors = FieldErrors(validationErr)
	case errors.As(err, &dupErr):
		body.Status = http.StatusBadRequest
		body.Code = apierror.CodeDuplicateResource
		body.Message = fmt.Sprintf("Unique restriction violation: %s", dupErr.Constraint)
	case errors.Is(err, model.ErrDuplicateKey):
		body.Status = http.StatusBadRequest
		body.Code = apierror.CodeDuplicateResource
		body.Message = "Unique restriction violation"
	case errors.Is(err, model.ErrNotFound):
		body.Status = http.StatusBadRequest
		body.Code = apierror.CodeNotFound
		body.Message = msgNotFound
	case errors.Is(err, model.ErrInvalidToken):
		body.Status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Authorization failed: Invalid token"
	default:
		if t.debug && err != nil {
			body.Error = err.Error()
		}
	}

	if body.Status == 0 {
		body.Status = http.StatusInternalServerError
	}

	return body
}

// NotFound answers requests that matched no route.
func (t *Translator) NotFound(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusNotFound, model.APIResponse{
		Success: false,
		Status:  http.StatusNotFound,
		Code:    apierror.CodeNotFound,
		Message: msgNotFound,
	})
}

func (t *Translator) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, model.APIResponse{
		Success: false,
		Status:  http.StatusMethodNotAllowed,
		Code:    apierror.CodeMethodNotAllowed,
		Message: "Method Not Allowed",
	})
}

// Panic answers a recovered panic. The stack is only attached in debug mode.
func (t *Translator) Panic(w http.ResponseWriter, recovered any, stack []byte) {
	body := model.APIResponse{
		Success: false,
		Status:  http.StatusInternalServerError,
		Code:    apierror.CodeInternal,
		Message: msgServerError,
	}
	if t.debug {
		body.Error = fmt.Sprintf("%v", recovered)
		body.Stack = string(stack)
	}
	JSON(w, http.StatusInternalServerError, body)
}

func FieldErrors(errs validator.ValidationErrors) []apierror.FieldError {
	out := make([]apierror.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, apierror.FieldError{
			Path:    fe.Field(),
			Message: fe.Error(),
		})
	}
	return out
}
