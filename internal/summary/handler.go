package summary

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groveauth/grove/internal/platform/httpx"
	"github.com/groveauth/grove/internal/shared"
)

// Handler exposes the summary endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the summary route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.summarize)
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	counts, err := h.service.Summarize(r.Context(), caller)
	if err != nil {
		if shared.KindOf(err) == shared.KindStorage {
			h.logger.Error("summary failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}
