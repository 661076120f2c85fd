package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store  Pinger
	logger *zap.Logger
}

func New(store Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Root answers the liveness check the frontend and mindctl poll.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "MindMate API is running! 🧠"})
}

// Health reports whether the store answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", zap.Error(err))
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
