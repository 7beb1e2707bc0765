package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shortloop/shortloop/internal/handler/dto"
	"github.com/shortloop/shortloop/internal/service"
)

// AnalyticsHandler serves aggregated click analytics.
type AnalyticsHandler struct {
	svc    *service.AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger,
	}
}

// Get handles GET /api/v1/links/{shortCode}/analytics.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_CODE", "Short code is required")
		return
	}

	analytics, err := h.svc.GetAnalytics(r.Context(), shortCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidShortCode):
			h.writeError(w, http.StatusBadRequest, "INVALID_CODE", "Invalid short code format")
		case errors.Is(err, service.ErrLinkNotFound):
			h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		default:
			h.logger.Error("analytics_error", "short_code", shortCode, "error", err)
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

// writeError writes an error response.
func (h *AnalyticsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
