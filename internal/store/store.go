// Package store defines the persistence contracts shared by the services.
package store

import (
	"context"
	"errors"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/mood"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Profiles stores user profile documents.
type Profiles interface {
	CreateProfile(ctx context.Context, p user.Profile) error
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update user.ProfileUpdate) error
	SetKeywords(ctx context.Context, userID string, keywords []string) error
	// DeleteUser removes the profile, the account and everything the user owns.
	DeleteUser(ctx context.Context, userID string) error
}

// Accounts stores login credentials keyed by unique email.
type Accounts interface {
	CreateAccount(ctx context.Context, a user.Account) error
	// CreateUser writes an account and its profile together; on error neither exists.
	CreateUser(ctx context.Context, a user.Account, p user.Profile) error
	GetAccountByEmail(ctx context.Context, email string) (user.Account, error)
}

// Conversations stores chat sessions and their append-only turns.
type Conversations interface {
	CreateSession(ctx context.Context, s chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendTurn(ctx context.Context, t chat.Turn) error
	// ListTurns returns up to limit turns of one session, oldest first.
	ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]chat.Turn, error)
}

// Moods stores mood log entries.
type Moods interface {
	AddMood(ctx context.Context, e mood.Entry) error
	// RecentMoods returns up to limit entries ordered by timestamp, newest first.
	RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error)
}

// Store is the single handle injected into every service.
type Store interface {
	Profiles
	Accounts
	Conversations
	Moods

	Ping(ctx context.Context) error
	Close()
}
