// Package memory is an in-process Store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/mood"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]user.Profile
	accounts map[string]user.Account // by lower-cased email
	sessions map[string]chat.Session
	turns    map[string][]chat.Turn // by user id
	moods    map[string][]mood.Entry
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		profiles: make(map[string]user.Profile),
		accounts: make(map[string]user.Account),
		sessions: make(map[string]chat.Session),
		turns:    make(map[string][]chat.Turn),
		moods:    make(map[string][]mood.Entry),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) CreateProfile(_ context.Context, p user.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.UserID]; ok {
		return store.ErrConflict
	}
	p.Keywords = append([]string{}, p.Keywords...)
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return user.Profile{}, store.ErrNotFound
	}
	p.Keywords = append([]string{}, p.Keywords...)
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, update user.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	update.Apply(&p)
	s.profiles[userID] = p
	return nil
}

func (s *Store) SetKeywords(_ context.Context, userID string, keywords []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	p.Keywords = append([]string{}, keywords...)
	s.profiles[userID] = p
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.profiles[userID]
	delete(s.profiles, userID)
	for email, a := range s.accounts {
		if a.ID == userID {
			delete(s.accounts, email)
			found = true
		}
	}
	if !found {
		return store.ErrNotFound
	}
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	delete(s.turns, userID)
	delete(s.moods, userID)
	return nil
}

func (s *Store) CreateAccount(_ context.Context, a user.Account) error {
	key := strings.ToLower(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; ok {
		return store.ErrConflict
	}
	s.accounts[key] = a
	return nil
}

func (s *Store) CreateUser(_ context.Context, a user.Account, p user.Profile) error {
	key := strings.ToLower(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; ok {
		return store.ErrConflict
	}
	if _, ok := s.profiles[p.UserID]; ok {
		return store.ErrConflict
	}
	s.accounts[key] = a
	p.Keywords = append([]string{}, p.Keywords...)
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (user.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return user.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateSession(_ context.Context, sess chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return store.ErrConflict
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) AppendTurn(_ context.Context, t chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[t.UserID] = append(s.turns[t.UserID], t)
	return nil
}

func (s *Store) ListTurns(_ context.Context, userID, sessionID string, limit int) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Turn
	for _, t := range s.turns[userID] {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AddMood(_ context.Context, e mood.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moods[e.UserID] = append(s.moods[e.UserID], e)
	return nil
}

func (s *Store) RecentMoods(_ context.Context, userID string, limit int) ([]mood.Entry, error) {
	s.mu.RLock()
	entries := append([]mood.Entry(nil), s.moods[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
