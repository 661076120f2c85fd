package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/mood"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

const uniqueViolation = "23505"

// execer is satisfied by both the pool and a pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func encodeKeywords(keywords []string) ([]byte, error) {
	if keywords == nil {
		keywords = []string{}
	}
	return json.Marshal(keywords)
}

// ----- profiles -----

func (s *Store) CreateProfile(ctx context.Context, p user.Profile) error {
	return insertProfile(ctx, s.pool, p)
}

func insertProfile(ctx context.Context, db execer, p user.Profile) error {
	kw, err := encodeKeywords(p.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO profiles (user_id, name, email, bio, emergency_contact, preferred_model, keywords, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.UserID, p.Name, p.Email, p.Bio, p.EmergencyContact, p.PreferredModel, kw, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var (
		p  user.Profile
		kw []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, bio, emergency_contact, preferred_model, keywords, created_at
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Name, &p.Email, &p.Bio, &p.EmergencyContact, &p.PreferredModel, &kw, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Profile{}, store.ErrNotFound
		}
		return user.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal(kw, &p.Keywords); err != nil {
		return user.Profile{}, fmt.Errorf("decode keywords: %w", err)
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update user.ProfileUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET
			bio = COALESCE($2, bio),
			emergency_contact = COALESCE($3, emergency_contact),
			preferred_model = COALESCE($4, preferred_model)
		WHERE user_id = $1`,
		userID, update.Bio, update.EmergencyContact, update.PreferredModel,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetKeywords(ctx context.Context, userID string, keywords []string) error {
	kw, err := encodeKeywords(keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE profiles SET keywords = $2 WHERE user_id = $1`, userID, kw)
	if err != nil {
		return fmt.Errorf("set keywords: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	profiles, err := tx.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	accounts, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if profiles.RowsAffected() == 0 && accounts.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM chat_turns WHERE user_id = $1`,
		`DELETE FROM chat_sessions WHERE user_id = $1`,
		`DELETE FROM moods WHERE user_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, userID); err != nil {
			return fmt.Errorf("delete user data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// ----- accounts -----

func (s *Store) CreateAccount(ctx context.Context, a user.Account) error {
	return insertAccount(ctx, s.pool, a)
}

func insertAccount(ctx context.Context, db execer, a user.Account) error {
	_, err := db.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, a user.Account, p user.Profile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertAccount(ctx, tx, a); err != nil {
		return err
	}
	if err := insertProfile(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signup: %w", err)
	}
	return nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (user.Account, error) {
	var a user.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE lower(email) = lower($1)`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Account{}, store.ErrNotFound
		}
		return user.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ----- conversations -----

func (s *Store) CreateSession(ctx context.Context, sess chat.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at) VALUES ($1, $2, $3)`,
		sess.ID, sess.UserID, sess.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	var sess chat.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at FROM chat_sessions WHERE id = $1`, sessionID,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chat.Session{}, store.ErrNotFound
		}
		return chat.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *Store) AppendTurn(ctx context.Context, t chat.Turn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_turns (id, user_id, session_id, role, content, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.SessionID, string(t.Role), t.Content, t.Provider, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]chat.Turn, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, session_id, role, content, provider, created_at
		FROM chat_turns
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at ASC
		LIMIT $3`, userID, sessionID, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			t    chat.Turn
			role string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.SessionID, &role, &t.Content, &t.Provider, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = chat.Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ----- moods -----

func (s *Store) AddMood(ctx context.Context, e mood.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO moods (id, user_id, mood_emoji, mood_score, note, logged_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Emoji, e.Score, e.Note, e.Timestamp, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

func (s *Store) RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, mood_emoji, mood_score, note, logged_at, created_at
		FROM moods
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT $2`, userID, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	defer rows.Close()

	var entries []mood.Entry
	for rows.Next() {
		var e mood.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Emoji, &e.Score, &e.Note, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
