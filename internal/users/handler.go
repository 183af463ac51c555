package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/groveauth/grove/internal/platform/httpx"
	"github.com/groveauth/grove/internal/shared"
)

// Handler exposes the user directory as a JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{email}", h.get)
	r.Put("/{email}", h.update)
	r.Delete("/{email}", h.delete)
}

type createUserRequest struct {
	Email string   `json:"email" validate:"required,email"`
	Name  string   `json:"name" validate:"required"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

type updateUserRequest struct {
	Name  string   `json:"name" validate:"required"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, "malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, err.Error()))
		return
	}
	user, err := h.service.Create(r.Context(), caller, req.Email, req.Name, req.Roles)
	if err != nil {
		h.logError(r, "create user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, "malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.E(shared.KindValidation, err.Error()))
		return
	}
	user, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "email"), req.Name, req.Roles)
	if err != nil {
		h.logError(r, "update user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	status, err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "email"))
	if err != nil {
		h.logError(r, "delete user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]DeleteStatus{"status": status})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.CallerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.E(shared.KindAuthentication, "no caller context"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.RespondError(w, shared.E(shared.KindValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	page, err := h.service.List(r.Context(), caller, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		h.logError(r, "list users", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	if shared.KindOf(err) == shared.KindStorage {
		h.logger.Error(op+" failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
}
