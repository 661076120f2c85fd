package mood

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

type Handler struct {
	moodSvc *moodService.Service
	logger  *zap.Logger
}

func New(moodSvc *moodService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{moodSvc: moodSvc, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/log", h.handleLog)
	r.Get("/today/{userID}", h.handleToday)
	r.Get("/week/{userID}", h.handleWeek)
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	var req moodService.LogRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !middleware.Owns(r, req.UserID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if _, err := h.moodSvc.Log(r.Context(), req); err != nil {
		if errors.Is(err, moodService.ErrInvalidTimestamp) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("log mood failed", zap.String("user_id", req.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Could not save mood")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, "Mood logged successfully!", nil)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	entries, err := h.moodSvc.Today(r.Context(), userID)
	if err != nil {
		h.logger.Error("load today's moods failed", zap.String("user_id", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Could not load moods")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"moods": entries})
}

func (h *Handler) handleWeek(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	report, err := h.moodSvc.Week(r.Context(), userID)
	if err != nil {
		h.logger.Error("load weekly moods failed", zap.String("user_id", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Could not load moods")
		return
	}
	utils.RespondJSON(w, http.StatusOK, report)
}
