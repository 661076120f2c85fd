package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/service/provider"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

var (
	ErrUserRequired    = errors.New("user_id is required")
	ErrMessageRequired = errors.New("message is required")
	ErrSessionNotFound = errors.New("session not found")
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	persistTimeout      = 5 * time.Second
)

// Store is the slice of the persistence layer the chat service needs.
type Store interface {
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
	SetKeywords(ctx context.Context, userID string, keywords []string) error
	store.Conversations
}

// Gateway resolves provider names and produces replies. *provider.Registry satisfies it.
type Gateway interface {
	Resolve(name string) provider.Kind
	Generate(ctx context.Context, kind provider.Kind, systemPrompt, userMessage string) provider.Reply
}

// Options tunes keyword tracking and history reads.
type Options struct {
	KeywordLimit int
	HistoryLimit int
}

// Service runs the conversation pipeline and owns session bookkeeping.
type Service struct {
	store   Store
	gateway Gateway
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService wires the pipeline to its store and provider gateway.
func NewService(st Store, gw Gateway, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Service{
		store:   st,
		gateway: gw,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// CreateSession issues an explicit conversation id for userID.
func (s *Service) CreateSession(ctx context.Context, userID string) (chat.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return chat.Session{}, ErrUserRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session if it belongs to userID.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (chat.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chat.Session{}, ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// History returns the oldest turns of one session. An empty sessionID selects today's date bucket.
func (s *Service) History(ctx context.Context, userID, sessionID string, limit int) ([]chat.Turn, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}

	bucket, err := s.resolveSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = s.opts.HistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	turns, err := s.store.ListTurns(ctx, userID, bucket, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	return turns, nil
}

// resolveSession maps an optional client session id to the bucket turns are stored under.
func (s *Service) resolveSession(ctx context.Context, userID, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return chat.DateBucket(s.now()), nil
	}
	if chat.IsDateBucket(sessionID) {
		return sessionID, nil
	}
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}
