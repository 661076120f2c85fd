// Package auth handles signup, password login and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/mindmate/backend/internal/logging"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrSignupFailed       = errors.New("signup failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Store is what signup and login need from persistence.
type Store interface {
	CreateUser(ctx context.Context, a user.Account, p user.Profile) error
	GetAccountByEmail(ctx context.Context, email string) (user.Account, error)
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session is a successful login.
type Session struct {
	UserID string
	Token  string
}

// Claims is the JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and checks credentials.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
	logger *zap.Logger
	now    func() time.Time

	// dummyHash keeps unknown-email logins as slow as wrong-password logins.
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost, mainly for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(st Store, secret string, ttl time.Duration, logger *zap.Logger, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// Signup creates the account and its default profile and returns the new user id.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (string, error) {
	email := strings.TrimSpace(req.Email)
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return "", ErrSignupFailed
	}

	now := s.now().UTC()
	account := user.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	profile := user.Profile{
		UserID:         account.ID,
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		Bio:            user.DefaultBio,
		PreferredModel: user.DefaultPreferredModel,
		Keywords:       []string{},
		CreatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, account, profile); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			s.logger.Error("create user failed",
				zap.String("user_id", account.ID),
				zap.String("email", logging.RedactEmail(email)),
				zap.Error(err))
		}
		return "", ErrSignupFailed
	}

	s.logger.Info("user signed up", zap.String("user_id", account.ID))
	return account.ID, nil
}

// Login verifies the password hash before issuing a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	email := strings.TrimSpace(req.Email)

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("load account failed", zap.String("email", logging.RedactEmail(email)), zap.Error(err))
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(account.ID, account.Email)
	if err != nil {
		s.logger.Error("sign token failed", zap.Error(err))
		return Session{}, ErrInvalidCredentials
	}
	return Session{UserID: account.ID, Token: token}, nil
}

// IssueToken signs an HS256 token for userID.
func (s *Service) IssueToken(userID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken parses and validates a token string.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
