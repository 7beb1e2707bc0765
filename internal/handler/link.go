package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shortloop/shortloop/internal/handler/dto"
	"github.com/shortloop/shortloop/internal/service"
)

// LinkHandler handles HTTP requests for link operations.
type LinkHandler struct {
	svc    *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/links.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     ownerID(r),
	}

	link, err := h.svc.CreateLink(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_created",
		"link_id", link.ID,
		"short_code", link.ShortCode,
		"has_custom_alias", req.CustomAlias != "",
	)

	writeJSON(w, http.StatusCreated, dto.ToLinkResponse(link, h.svc.BaseURL()))
}

// List handles GET /api/v1/links.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.ListLinks(r.Context(), ownerID(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinkListResponse(links, h.svc.BaseURL()))
}

// Delete handles DELETE /api/v1/links/{shortCode}.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_CODE", "Short code is required")
		return
	}

	if err := h.svc.DeleteLink(r.Context(), shortCode, ownerID(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_deleted", "short_code", shortCode)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *LinkHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	case errors.Is(err, service.ErrAliasExists):
		h.writeError(w, http.StatusConflict, "ALIAS_TAKEN", "Alias already exists")
	case errors.Is(err, service.ErrInvalidURL):
		h.writeError(w, http.StatusBadRequest, "INVALID_URL", "Invalid original URL")
	case errors.Is(err, service.ErrSuspiciousURL):
		h.writeError(w, http.StatusBadRequest, "FORBIDDEN_SCHEME", "URL contains a forbidden scheme")
	case errors.Is(err, service.ErrInvalidAlias):
		h.writeError(w, http.StatusBadRequest, "INVALID_ALIAS", "Invalid alias format")
	case errors.Is(err, service.ErrInvalidShortCode):
		h.writeError(w, http.StatusBadRequest, "INVALID_CODE", "Invalid short code format")
	case errors.Is(err, service.ErrExpiresInPast):
		h.writeError(w, http.StatusUnprocessableEntity, "EXPIRES_IN_PAST", "Expiry date must be in the future")
	case errors.Is(err, service.ErrNotOwner):
		h.writeError(w, http.StatusForbidden, "NOT_OWNER", "You do not have permission to delete this link")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *LinkHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
