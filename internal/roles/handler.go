package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/groveauth/grove/internal/platform/httpx"
	"github.com/groveauth/grove/internal/shared"
)

// Handler exposes the role directory as a JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type roleRequest struct {
	RoleType string `json:"roleType" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, "malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, err.Error()))
		return
	}
	role, err := h.service.Create(r.Context(), caller, req.RoleType, req.Name, req.ParentID)
	if err != nil {
		h.logError(r, "create role", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, "malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, err.Error()))
		return
	}
	role, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), req.Name, req.RoleType, req.ParentID)
	if err != nil {
		h.logError(r, "update role", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.logError(r, "delete role", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logError(r, "list roles", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	if shared.KindOf(err) == shared.KindStorage {
		h.logger.Error(op+" failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
}
