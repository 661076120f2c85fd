package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/metrics"
)

// Registry dispatches Generate calls to the provider registered for a kind.
type Registry struct {
	providers map[Kind]Provider
	fallback  Kind
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRegistry registers providers by their Kind; a later provider replaces an earlier one of the same kind.
// timeout <= 0 leaves the caller's deadline untouched.
func NewRegistry(fallback Kind, timeout time.Duration, logger *zap.Logger, providers ...Provider) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		providers: make(map[Kind]Provider, len(providers)),
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Kind()] = p
		}
	}
	return r
}

// Fallback is the kind used for unknown names.
func (r *Registry) Fallback() Kind {
	return r.fallback
}

// Resolve maps a client-supplied provider name to a kind.
func (r *Registry) Resolve(name string) Kind {
	return Resolve(name, r.fallback)
}

// Registered reports whether kind has a configured provider.
func (r *Registry) Registered(kind Kind) bool {
	_, ok := r.providers[kind]
	return ok
}

// Generate calls the provider for kind exactly once. A kind with no registered
// provider yields that kind's missing-key text.
func (r *Registry) Generate(ctx context.Context, kind Kind, systemPrompt, userMessage string) (reply Reply) {
	p, ok := r.providers[kind]
	if !ok {
		reply = missingKey(kind)
		r.observe(reply, 0)
		return reply
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("provider panicked", zap.String("provider", string(kind)), zap.Any("panic", rec))
			reply = transportError(kind, fmt.Errorf("panic: %v", rec))
		}
		r.observe(reply, time.Since(start))
	}()

	reply = p.Generate(ctx, systemPrompt, userMessage)
	if reply.Provider == "" {
		reply.Provider = kind
	}
	return reply
}

func (r *Registry) observe(reply Reply, elapsed time.Duration) {
	metrics.ProviderRequests.WithLabelValues(string(reply.Provider), string(reply.Status)).Inc()
	if elapsed > 0 {
		metrics.ProviderDuration.WithLabelValues(string(reply.Provider)).Observe(elapsed.Seconds())
	}

	if reply.OK() {
		r.logger.Debug("provider reply",
			zap.String("provider", string(reply.Provider)),
			zap.Int("length", len(reply.Text)),
			zap.Duration("elapsed", elapsed),
		)
		return
	}
	r.logger.Warn("provider failed",
		zap.String("provider", string(reply.Provider)),
		zap.String("status", string(reply.Status)),
		zap.Duration("elapsed", elapsed),
	)
}
