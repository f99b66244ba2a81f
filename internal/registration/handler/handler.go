// Package handler exposes registration over HTTP: input validation and
// wire-shape concerns live here, orchestration stays in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"

	"keeply/internal/platform/middleware"
	"keeply/internal/profilestore"
	"keeply/internal/registration/models"
)

// RegistrationService runs registrations and logins.
type RegistrationService interface {
	Register(ctx context.Context, req models.RegistrationRequest) (*models.Outcome, error)
	Login(ctx context.Context, email, password string) (map[string]any, error)
}

// ProfileReader reports whether an account's profile row landed.
type ProfileReader interface {
	Fetch(ctx context.Context, accountID string) (profilestore.Status, error)
}

type Handler struct {
	svc      RegistrationService
	profiles ProfileReader
	logger   *slog.Logger
}

func NewHandler(svc RegistrationService, profiles ProfileReader, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, profiles: profiles, logger: logger}
}

// Routes mounts the public endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// AuthenticatedRoutes mounts the endpoints behind bearer authentication.
func (h *Handler) AuthenticatedRoutes(r chi.Router) {
	r.Get("/profile-status", h.handleProfileStatus)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"JSON inválido ou campos em formato incorreto."))
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		httputil.WriteFieldErrors(w, fields)
		return
	}

	outcome, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "registration failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"status", dErrors.HTTPStatus(err),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, outcome.Body)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"JSON inválido ou campos em formato incorreto."))
		return
	}

	fields := make(map[string]string)
	if req.Email == "" {
		fields["email"] = "E-mail é obrigatório."
	}
	if req.Password == "" {
		fields["password"] = "Senha é obrigatória."
	}
	if len(fields) > 0 {
		httputil.WriteFieldErrors(w, fields)
		return
	}

	body, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) handleProfileStatus(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetUserID(r.Context())
	status, err := h.profiles.Fetch(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	authInfoStatus := "ok"
	if !status.Exists {
		authInfoStatus = "pending"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"auth_info_status":  authInfoStatus,
		"profile_completed": status.ProfileCompleted,
	})
}
