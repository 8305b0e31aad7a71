package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-api-template/internal/model"
	"go-api-template/pkg/apierror"
)

// Timeout bounds API handlers; the handler's context is cancelled when the
// deadline passes and the client gets a 503 envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Status:  http.StatusServiceUnavailable,
		Code:    apierror.CodeServiceUnavailable,
		Message: "Request timed out",
	})

	return func(next http.Handler) http.Handler {
		guarded := http.TimeoutHandler(next, timeout, string(body))

		// http.TimeoutHandler writes its message without a content type. Headers
		// set by the wrapped handler replace this one on the normal path.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			guarded.ServeHTTP(w, r)
		})
	}
}
