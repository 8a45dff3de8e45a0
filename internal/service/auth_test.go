package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pkgcrypto "github.com/and161185/carenotes/internal/crypto"
	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/limiter"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// fakeUsers serves logins only; the coordinator tests use the memory store.
type fakeUsers struct {
	byEmail map[string]*model.User
	getErr  error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(context.Context, *model.User) error { return errors.New("not used") }
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) Update(context.Context, *model.User) error { return nil }
func (f *fakeUsers) SetImage(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (f *fakeUsers) Delete(context.Context, uuid.UUID) (*model.User, error) { return nil, nil }
func (f *fakeUsers) AssociatePatient(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (f *fakeUsers) DisassociatePatient(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastEmail    string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, email string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastEmail = email
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func newAuthFixture(t *testing.T, ttl time.Duration) (*AuthServiceImpl, *fakeUsers, *fakeLimiter, *model.User) {
	t.Helper()
	hash, err := pkgcrypto.HashPassword("correct")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Name: "Alice", Email: "alice@example.com", PwdHash: hash}
	users := &fakeUsers{byEmail: map[string]*model.User{u.Email: u}}
	lim := &fakeLimiter{allowOK: true}
	return NewAuthService(users, []byte("secret"), ttl, lim), users, lim, u
}

func TestAuth_Login_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()
	s, users, lim, u := newAuthFixture(t, 2*time.Minute)
	ctx := context.Background()

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.Login(ctx, "alice@example.com", "correct", "1.2.3.4"); errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("want internal error from limiter, got %v", err)
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.Login(ctx, "alice@example.com", "correct", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	_, _, err := s.Login(ctx, "nope@example.com", "x", "")
	if !errors.Is(err, errs.ErrUnauthorized) || errs.MessageOf(err) != MsgInvalidCredentials {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}

	users.getErr = errors.New("db down")
	if _, _, err := s.Login(ctx, "alice@example.com", "correct", ""); errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("want internal error on store failure, got %v", err)
	}
	users.getErr = nil

	lim.failBlocked = true
	if _, _, err := s.Login(ctx, "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	lim.failBlocked = false
	if _, _, err := s.Login(ctx, "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, gotUser, err := s.Login(ctx, " Alice@Example.com", "correct", "127.0.0.1:123")
	if err != nil {
		t.Fatalf("Login success: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 || lim.lastEmail != "alice@example.com" {
		t.Fatalf("expected Success() and normalized limiter key, got %q", lim.lastEmail)
	}
}

func TestAuth_Login_Validation(t *testing.T) {
	t.Parallel()
	s, _, lim, _ := newAuthFixture(t, time.Minute)

	if _, _, err := s.Login(context.Background(), "", "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if lim.allowCalls != 0 {
		t.Fatalf("limiter must not be consulted for invalid payloads")
	}
}

func TestAuth_ParseToken_RoundTrip(t *testing.T) {
	t.Parallel()
	s, _, _, u := newAuthFixture(t, 15*time.Minute)

	tok, _, err := s.Login(context.Background(), "alice@example.com", "correct", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := s.ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if id != u.ID {
		t.Fatalf("subject=%s, want=%s", id, u.ID)
	}
	if d := time.Until(tok.ExpiresAt); d <= 14*time.Minute || d > 15*time.Minute {
		t.Fatalf("unexpected ttl: %v", d)
	}
}

func TestAuth_ParseToken_Rejects(t *testing.T) {
	t.Parallel()
	s, _, _, u := newAuthFixture(t, time.Minute)

	sign := func(method jwt.SigningMethod, key any, sub string, exp time.Time) string {
		tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		str, err := tok.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return str
	}

	cases := map[string]string{
		"expired":     sign(jwt.SigningMethodHS256, []byte("secret"), u.ID.String(), time.Now().Add(-time.Minute)),
		"wrong key":   sign(jwt.SigningMethodHS256, []byte("other"), u.ID.String(), time.Now().Add(time.Minute)),
		"wrong alg":   sign(jwt.SigningMethodHS512, []byte("secret"), u.ID.String(), time.Now().Add(time.Minute)),
		"bad subject": sign(jwt.SigningMethodHS256, []byte("secret"), "not-a-uuid", time.Now().Add(time.Minute)),
		"garbage":     strings.Repeat("x", 20),
	}
	for name, tok := range cases {
		if _, err := s.ParseToken(tok); !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", name, err)
		}
	}
}
