package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/store"
	"github.com/zhouzirui/mindmate/backend/internal/store/memory"
)

// profileFailStore makes the profile insert of the first CreateUser call
// collide with a stray row, then clears the row again.
type profileFailStore struct {
	*memory.Store
	failed bool
}

func (f *profileFailStore) CreateUser(ctx context.Context, a user.Account, p user.Profile) error {
	if f.failed {
		return f.Store.CreateUser(ctx, a, p)
	}
	f.failed = true

	if err := f.Store.CreateProfile(ctx, user.Profile{UserID: p.UserID}); err != nil {
		return err
	}
	err := f.Store.CreateUser(ctx, a, p)
	if delErr := f.Store.DeleteUser(ctx, p.UserID); delErr != nil {
		return errors.Join(err, delErr)
	}
	if err == nil {
		return errors.New("expected profile conflict")
	}
	return err
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc, err := NewService(st, "test-secret", time.Hour, zaptest.NewLogger(t), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return svc, st
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("asha.k+mind@iitb.ac.in"))
	assert.False(t, ValidEmail("asha@localhost"))
	assert.False(t, ValidEmail("not an email"))
	assert.False(t, ValidEmail(""))
}

func TestSignupCreatesDefaultProfile(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, err := svc.Signup(ctx, SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	p, err := st.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, user.DefaultBio, p.Bio)
	assert.Equal(t, "groq", p.PreferredModel)
	assert.Equal(t, []string{}, p.Keywords)

	a, err := st.GetAccountByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", a.PasswordHash)
}

func TestSignupRejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Name: "A", Email: "bad", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Signup(ctx, SignupRequest{Name: "A", Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupRequest{Name: "B", Email: "DUP@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrSignupFailed)
}

func TestSignupRetryAfterProfileFailure(t *testing.T) {
	st := &profileFailStore{Store: memory.New()}
	svc, err := NewService(st, "test-secret", time.Hour, zaptest.NewLogger(t), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	ctx := context.Background()
	req := SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"}

	_, err = svc.Signup(ctx, req)
	require.ErrorIs(t, err, ErrSignupFailed)

	_, err = st.GetAccountByEmail(ctx, req.Email)
	require.ErrorIs(t, err, store.ErrNotFound, "failed signup must not leave an account behind")

	id, err := svc.Signup(ctx, req)
	require.NoError(t, err)

	session, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	require.NoError(t, err)
	assert.Equal(t, id, session.UserID)

	_, err = st.GetProfile(ctx, id)
	assert.NoError(t, err)
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Signup(ctx, SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, id, session.UserID)

	claims, err := svc.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestVerifyTokenRejects(t *testing.T) {
	svc, _ := newTestService(t)

	token, err := svc.IssueToken("u1", "a@example.com")
	require.NoError(t, err)

	other, err := NewService(memory.New(), "other-secret", time.Hour, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(memory.New(), "", time.Hour, nil)
	assert.Error(t, err)
}
