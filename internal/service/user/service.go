// Package user serves profile reads, partial updates and account deletion.
package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/service/provider"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUnknownModel   = errors.New("unknown preferred_model")
	ErrNothingToApply = errors.New("no profile fields to update")
)

// Store is the profile slice of the persistence layer.
type Store interface {
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update user.ProfileUpdate) error
	DeleteUser(ctx context.Context, userID string) error
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(st Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

func (s *Service) Profile(ctx context.Context, userID string) (user.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.Profile{}, ErrNotFound
		}
		return user.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields. preferred_model must name a known provider.
func (s *Service) Update(ctx context.Context, userID string, update user.ProfileUpdate) error {
	if update.Empty() {
		return ErrNothingToApply
	}
	if update.PreferredModel != nil {
		kind, ok := provider.ParseKind(*update.PreferredModel)
		if !ok {
			return ErrUnknownModel
		}
		normalized := string(kind)
		update.PreferredModel = &normalized
	}

	if err := s.store.UpdateProfile(ctx, userID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update profile: %w", err)
	}
	s.logger.Info("profile updated", zap.String("user_id", userID))
	return nil
}

// Delete removes the user and everything they own.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}
