package handler

import (
	"context"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency can serve requests.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
}

type HealthHandler struct {
	checker HealthChecker
	timeout time.Duration
	logger  *logger.Logger
}

func NewHealthHandler(checker HealthChecker, timeout time.Duration, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		timeout: timeout,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.checker.Health(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    CodeUnavailable,
				Message: "service unhealthy",
			},
		}, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy"}, h.logger)
}
