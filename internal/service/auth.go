// Package service contains the aggregate coordinators and authentication.
//
// Every operation returns either its data or an *errs.Error carrying the outcome
// kind and the caller-facing message. Unexpected store failures are downgraded to
// internal errors with the cause kept for logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgcrypto "github.com/and161185/carenotes/internal/crypto"
	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/limiter"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService defines authentication operations.
type AuthService interface {
	// Login applies rate-limiting and authenticates the user by email and password.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// ParseToken validates an access token and returns its subject.
	ParseToken(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, now: time.Now}
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.Tokens{}, model.User{}, errs.Validation("validation: email/password required")
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, errs.Internal(err)
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.RateLimited(MsgTooManyAttempts)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, errs.Internal(err)
	}
	ok := false
	if err == nil {
		if ok, err = pkgcrypto.VerifyPassword(password, u.PwdHash); err != nil {
			return model.Tokens{}, model.User{}, errs.Internal(err)
		}
	}
	if !ok {
		// unknown email and wrong password are indistinguishable to the caller
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.RateLimited(MsgTooManyAttempts)
		}
		return model.Tokens{}, model.User{}, errs.Unauthorized(MsgInvalidCredentials)
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, errs.Internal(err)
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// ParseToken verifies signature, algorithm and expiry of an access token.
func (s *AuthServiceImpl) ParseToken(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}
