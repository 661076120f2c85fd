package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/keywords"
	"github.com/zhouzirui/mindmate/backend/internal/analysis/safety"
	"github.com/zhouzirui/mindmate/backend/internal/metrics"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/service/prompt"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

// Request is one inbound chat message.
type Request struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	Message     string `json:"message" validate:"required,max=4000"`
	ModelChoice string `json:"model_choice" validate:"max=32"`
	SessionID   string `json:"session_id,omitempty" validate:"max=64"`
}

// Response is what the client receives for both crisis and normal replies.
type Response struct {
	Response  string            `json:"response"`
	IsCrisis  bool              `json:"is_crisis"`
	Helplines map[string]string `json:"helplines,omitempty"`
	Timestamp string            `json:"timestamp"`
	Provider  string            `json:"provider,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
}

// userContext is what the prompt builder needs to know about the user.
type userContext struct {
	displayName string
	keywords    []string
	found       bool
}

// Chat runs safety filter, context load, prompt build, one provider call,
// persistence and keyword tracking, in that order.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Response{}, ErrUserRequired
	}
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, ErrMessageRequired
	}

	if safety.IsCrisis(req.Message) {
		metrics.ChatRequests.WithLabelValues("crisis").Inc()
		s.logger.Warn("crisis message detected", zap.String("user_id", req.UserID))
		return Response{
			Response:  safety.CrisisMessage,
			IsCrisis:  true,
			Helplines: safety.HelplineMap(),
			Timestamp: s.timestamp(),
		}, nil
	}

	sessionID, err := s.resolveSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return Response{}, err
	}

	uc := s.loadContext(ctx, req.UserID)
	systemPrompt := prompt.BuildSystemPrompt(uc.displayName, uc.keywords)

	kind := s.gateway.Resolve(req.ModelChoice)
	reply := s.gateway.Generate(ctx, kind, systemPrompt, req.Message)

	requested := strings.TrimSpace(req.ModelChoice)
	if requested == "" {
		requested = string(kind)
	}

	// Writes outlive a disconnected client so the pair is not cut in half.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	s.persist(persistCtx, chat.Turn{
		UserID:    req.UserID,
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Content:   req.Message,
		Provider:  requested,
	}, "user_turn")
	s.persist(persistCtx, chat.Turn{
		UserID:    req.UserID,
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Content:   reply.Text,
		Provider:  string(reply.Provider),
	}, "assistant_turn")

	if uc.found {
		s.trackKeywords(persistCtx, req.UserID, uc.keywords, req.Message)
	}

	metrics.ChatRequests.WithLabelValues("reply").Inc()
	s.logger.Info("chat reply",
		zap.String("user_id", req.UserID),
		zap.String("session_id", sessionID),
		zap.String("provider", string(reply.Provider)),
		zap.String("status", string(reply.Status)),
	)

	return Response{
		Response:  reply.Text,
		IsCrisis:  false,
		Timestamp: s.timestamp(),
		Provider:  string(reply.Provider),
		SessionID: sessionID,
	}, nil
}

// loadContext never fails: a missing or unreadable profile yields the default name and no keywords.
func (s *Service) loadContext(ctx context.Context, userID string) userContext {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("load profile failed", zap.String("user_id", userID), zap.Error(err))
		}
		return userContext{displayName: user.DefaultDisplayName, keywords: []string{}}
	}

	kws := profile.Keywords
	if kws == nil {
		kws = []string{}
	}
	return userContext{displayName: profile.DisplayName(), keywords: kws, found: true}
}

// persist stamps the turn at write time. Failures are logged and counted, never returned.
func (s *Service) persist(ctx context.Context, turn chat.Turn, kind string) {
	turn.ID = uuid.NewString()
	turn.CreatedAt = s.now().UTC()

	if err := s.store.AppendTurn(ctx, turn); err != nil {
		metrics.PersistFailures.WithLabelValues(kind).Inc()
		s.logger.Error("persist chat turn failed",
			zap.String("user_id", turn.UserID),
			zap.String("session_id", turn.SessionID),
			zap.String("role", string(turn.Role)),
			zap.Error(err),
		)
	}
}

func (s *Service) trackKeywords(ctx context.Context, userID string, existing []string, message string) {
	fresh := keywords.Extract(message)
	if len(fresh) == 0 {
		return
	}

	merged := keywords.Merge(existing, fresh, s.opts.KeywordLimit)
	if slices.Equal(existing, merged) {
		return
	}

	if err := s.store.SetKeywords(ctx, userID, merged); err != nil {
		metrics.PersistFailures.WithLabelValues("keywords").Inc()
		s.logger.Error("update keywords failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
