package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/service/auth"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

type subjectKey struct{}

// TokenVerifier checks bearer tokens. *auth.Service satisfies it.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Authenticator attaches the token subject to the request context.
type Authenticator struct {
	verifier TokenVerifier
	enforce  bool
	logger   *zap.Logger
}

// NewAuthenticator builds the bearer-token middleware. With enforce false,
// requests without a valid token pass through anonymously.
func NewAuthenticator(verifier TokenVerifier, enforce bool, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{verifier: verifier, enforce: enforce, logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if ok {
			claims, err := a.verifier.VerifyToken(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, claims.Subject)))
				return
			}
			a.logger.Debug("rejected bearer token", zap.Error(err))
		}

		if a.enforce {
			utils.RespondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Subject returns the authenticated user id, if any.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok && sub != ""
}

// Owns reports whether the caller may act on userID. Anonymous callers only
// reach handlers when enforcement is off.
func Owns(r *http.Request, userID string) bool {
	sub, ok := Subject(r.Context())
	if !ok {
		return true
	}
	return sub == userID
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass ?access_token= instead.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		token := r.URL.Query().Get("access_token")
		return token, token != ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
