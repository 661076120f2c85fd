package chat

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

const (
	defaultIdleTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// WebSocketHandler 为每个用户维持一条长连接并在其上运行聊天流程
type WebSocketHandler struct {
	chatSvc     *chatService.Service
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	frameLimit  rate.Limit
	frameBurst  int
	idleTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器，perMinute <= 0 时不限制消息频率，idle <= 0 时使用默认空闲超时
func NewWebSocketHandler(chatSvc *chatService.Service, logger *zap.Logger, allowedOrigins []string, perMinute, burst int, idle time.Duration) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if burst <= 0 {
		burst = 1
	}

	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		logger:      logger,
		frameLimit:  limit,
		frameBurst:  burst,
		idleTimeout: idle,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{userID}", h.handleWebSocket)
}

type inboundMessage struct {
	Message     string `json:"message"`
	ModelChoice string `json:"model_choice"`
	SessionID   string `json:"session_id"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !middleware.Owns(r, userID) {
		utils.RespondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("user_id", userID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(utils.MaxBodyBytes)
	h.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.extendDeadline(conn)
		return nil
	})

	go h.pingLoop(ctx, conn)

	limiter := rate.NewLimiter(h.frameLimit, h.frameBurst)
	h.send(conn, outgoingMessage{Type: "connected", Data: map[string]string{"user_id": userID}})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
		h.extendDeadline(conn)

		if !limiter.Allow() {
			h.sendError(conn, "Too many requests, please slow down")
			continue
		}

		req := chatService.Request{
			UserID:      userID,
			Message:     msg.Message,
			ModelChoice: msg.ModelChoice,
			SessionID:   msg.SessionID,
		}
		if err := utils.Validate(&req); err != nil {
			h.sendError(conn, err.Error())
			continue
		}

		resp, err := h.chatSvc.Chat(ctx, req)
		// 模型调用可能耗尽整个空闲窗口，回复后重新计时
		h.extendDeadline(conn)
		if err != nil {
			switch {
			case errors.Is(err, chatService.ErrMessageRequired):
				h.sendError(conn, err.Error())
			case errors.Is(err, chatService.ErrSessionNotFound):
				h.sendError(conn, "Session not found")
			default:
				h.logger.Error("websocket chat failed", zap.String("user_id", userID), zap.Error(err))
				h.sendError(conn, "Internal server error")
			}
			continue
		}

		h.send(conn, outgoingMessage{Type: "reply", SessionID: resp.SessionID, Data: resp})
	}
}

// extendDeadline 将读超时推迟一个空闲窗口
func (h *WebSocketHandler) extendDeadline(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, outgoingMessage{Type: "error", Data: map[string]string{"message": message}})
}

// pingLoop 定期发送ping消息，WriteControl 可以与 WriteJSON 并发调用
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.idleTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
