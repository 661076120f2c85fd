package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/handler"
	"github.com/zhouzirui/mindmate/backend/internal/logging"
	"github.com/zhouzirui/mindmate/backend/internal/service/auth"
	"github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/mood"
	"github.com/zhouzirui/mindmate/backend/internal/service/provider"
	"github.com/zhouzirui/mindmate/backend/internal/service/user"
	"github.com/zhouzirui/mindmate/backend/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file outside production
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: failed to load .env file: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("mindmate backend stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := postgres.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := newRegistry(ctx, cfg.Providers, logger)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(st, cfg.Auth.SecretKey, cfg.Auth.TokenTTL, logger.Named("auth"))
	if err != nil {
		return err
	}

	router := handler.NewRouter(*cfg, handler.Services{
		Store: st,
		Auth:  authSvc,
		Chat: chat.NewService(st, registry, logger.Named("chat"), chat.Options{
			KeywordLimit: cfg.Chat.KeywordLimit,
			HistoryLimit: cfg.Chat.HistoryLimit,
		}),
		Mood:  mood.NewService(st, logger.Named("mood")),
		Users: user.NewService(st, logger.Named("user")),
	}, logger.Named("http"))

	return startServer(ctx, cfg.Server, router, logger)
}

// newRegistry registers every provider variant. Variants without a key answer
// with their missing-key reply.
func newRegistry(ctx context.Context, cfg config.ProviderConfig, logger *zap.Logger) (*provider.Registry, error) {
	httpClient := &http.Client{}

	arkProvider, err := provider.NewArkFromConfig(ctx, cfg.Ark, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Ark.Enabled() {
		logger.Info("ark provider enabled", zap.String("model", cfg.Ark.Model))
	} else {
		logger.Info("ark credentials not configured, ark replies will report a missing key")
	}

	providers := []provider.Provider{
		provider.NewGroq(cfg, httpClient),
		provider.NewChatGPT(cfg, httpClient),
		provider.NewGemini(ctx, cfg, httpClient),
		arkProvider,
	}

	fallback := provider.Resolve(cfg.Default, provider.Groq)
	return provider.NewRegistry(fallback, cfg.Timeout, logger.Named("provider"), providers...), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       serverCfg.ReadTimeout,
		WriteTimeout:      serverCfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("MindMate backend listening", zap.String("addr", serverCfg.Addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
