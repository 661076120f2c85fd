package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authService "github.com/zhouzirui/mindmate/backend/internal/service/auth"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

const (
	msgSignupFailed       = "Signup failed: account could not be created"
	msgInvalidEmail       = "Invalid email format"
	msgInvalidCredentials = "Invalid credentials or user not found"
)

// Handler serves signup, login and logout.
type Handler struct {
	authSvc *authService.Service
	logger  *zap.Logger
}

func New(authSvc *authService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{authSvc: authSvc, logger: logger}
}

// RegisterRoutes mounts /signup, /login and /logout.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authService.SignupRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := h.authSvc.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, authService.ErrInvalidEmail) {
			utils.RespondError(w, http.StatusBadRequest, msgInvalidEmail)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, msgSignupFailed)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, "Account created successfully", map[string]any{
		"user_id": userID,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authService.LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, "", map[string]any{
		"user_id":  session.UserID,
		"token":    session.Token,
		"redirect": "/profile",
	})
}

// Tokens are stateless; the client drops its copy.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, "Logged out", nil)
}
