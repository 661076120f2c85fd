package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/handler/auth"
	"github.com/zhouzirui/mindmate/backend/internal/handler/chat"
	"github.com/zhouzirui/mindmate/backend/internal/handler/health"
	"github.com/zhouzirui/mindmate/backend/internal/handler/mood"
	"github.com/zhouzirui/mindmate/backend/internal/handler/user"
	"github.com/zhouzirui/mindmate/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/mindmate/backend/internal/middleware"
	authService "github.com/zhouzirui/mindmate/backend/internal/service/auth"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	userService "github.com/zhouzirui/mindmate/backend/internal/service/user"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Store health.Pinger
	Auth  *authService.Service
	Chat  *chatService.Service
	Mood  *moodService.Service
	Users *userService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.Config, svcs Services, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	healthHandler := health.New(svcs.Store, logger)
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", auth.New(svcs.Auth, logger).RegisterRoutes)

	authn := middlewarePkg.NewAuthenticator(svcs.Auth, cfg.Auth.Enforce, logger)
	limiter := middlewarePkg.NewRateLimiter(cfg.Chat.RatePerMinute, cfg.Chat.RateBurst, logger)

	r.Group(func(scoped chi.Router) {
		scoped.Use(authn.Middleware)

		scoped.Route("/chat", func(cr chi.Router) {
			chat.New(svcs.Chat, logger).RegisterRoutes(cr, limiter.Middleware)
			chat.NewWebSocketHandler(svcs.Chat, logger, cfg.Server.AllowedOrigins, cfg.Chat.RatePerMinute, cfg.Chat.RateBurst, cfg.Chat.IdleTimeout).
				RegisterWebSocketRoutes(cr)
		})
		scoped.Route("/mood", mood.New(svcs.Mood, logger).RegisterRoutes)
		scoped.Route("/user", user.New(svcs.Users, logger).RegisterRoutes)
	})

	return r
}
