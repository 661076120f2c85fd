package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由，limit 只包裹会调用模型的接口
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/", h.handleChat)
	r.Post("/session", h.handleCreateSession)
	r.Get("/history/{userID}", h.handleHistory)
}

// handleChat 让一条消息走完整个对话流程
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatService.Request
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !middleware.Owns(r, req.UserID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	resp, err := h.chatSvc.Chat(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, req.UserID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"user_id" validate:"required,max=128"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !middleware.Owns(r, payload.UserID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.UserID)
	if err != nil {
		h.respondServiceError(w, payload.UserID, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleHistory 返回 ?session= 指定会话的消息，默认取当天
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	sessionID := r.URL.Query().Get("session")

	turns, err := h.chatSvc.History(r.Context(), userID, sessionID, limit)
	if err != nil {
		h.respondServiceError(w, userID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"messages": turns,
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, chatService.ErrUserRequired), errors.Is(err, chatService.ErrMessageRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "Session not found")
	default:
		h.logger.Error("chat request failed", zap.String("user_id", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
