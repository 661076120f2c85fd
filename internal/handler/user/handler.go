package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	userModel "github.com/zhouzirui/mindmate/backend/internal/model/user"
	userService "github.com/zhouzirui/mindmate/backend/internal/service/user"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler serves profile reads, partial updates and account deletion.
type Handler struct {
	userSvc *userService.Service
	logger  *zap.Logger
}

func New(userSvc *userService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{userSvc: userSvc, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/{userID}/profile", h.handleGetProfile)
	r.Put("/{userID}/profile", h.handleUpdateProfile)
	r.Delete("/{userID}", h.handleDelete)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	profile, err := h.userSvc.Profile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, userID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var update userModel.ProfileUpdate
	if err := utils.DecodeJSON(w, r, &update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userSvc.Update(r.Context(), userID, update); err != nil {
		h.respondServiceError(w, userID, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Profile updated", nil)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.userSvc.Delete(r.Context(), userID); err != nil {
		h.respondServiceError(w, userID, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Account deleted", nil)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, userService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, userService.ErrNothingToApply):
		utils.RespondError(w, http.StatusBadRequest, "No profile fields to update")
	case errors.Is(err, userService.ErrUnknownModel):
		utils.RespondError(w, http.StatusBadRequest, "Unknown preferred_model")
	default:
		h.logger.Error("profile request failed", zap.String("user_id", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
