package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-api-template/internal/model"
	"go-api-template/internal/response"
	"go-api-template/pkg/apierror"
)

type pinger interface {
	Health(ctx context.Context) error
}

type healthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database,omitempty"`
}

type HealthHandler struct {
	db  pinger
	log *slog.Logger
	now func() time.Time
}

func NewHealthHandler(db pinger, log *slog.Logger) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{db: db, log: log, now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, healthStatus{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Ready also pings the database.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		h.log.WarnContext(r.Context(), "readiness check failed", "error", err)
		response.JSON(w, http.StatusServiceUnavailable, model.APIResponse{
			Success: false,
			Status:  http.StatusServiceUnavailable,
			Code:    apierror.CodeServiceUnavailable,
			Message: "Database unavailable",
		})
		return
	}

	response.JSON(w, http.StatusOK, healthStatus{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		Database:  "ok",
	})
}
