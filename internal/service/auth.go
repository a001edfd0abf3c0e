// Package service contains application services for authentication and the product catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/ecoeat/internal/crypto"
	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/limiter"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// Claims are the access token claims. Subject holds the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService defines account operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, email, password string) (model.Principal, error)
	// Login authenticates the user and issues an access token. Repeated failures from
	// one client lock the email out for a while.
	Login(ctx context.Context, email, password string) (model.Tokens, model.Principal, error)
	// Profile returns the principal of an existing user.
	Profile(ctx context.Context, userID uuid.UUID) (model.Principal, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// AuthOption configures AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithLimiter throttles failed logins. The caller's address is read with limiter.ClientFrom.
func WithLimiter(l limiter.Limiter) AuthOption {
	return func(s *AuthServiceImpl) { s.lim = l }
}

// NewAuthService constructs AuthService with required dependencies. Without
// WithLimiter logins are not throttled.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, opts ...AuthOption) *AuthServiceImpl {
	s := &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: limiter.Nop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (model.Principal, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return model.Principal{}, fmt.Errorf("%w: bad email", errs.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return model.Principal{}, fmt.Errorf("%w: password shorter than %d", errs.ErrValidation, MinPasswordLen)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Principal{}, err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return model.Principal{}, err
	}
	u := &model.User{
		ID:      uid,
		Email:   email,
		PwdHash: pkgcrypto.HashPassword(password, salt),
		Salt:    salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Principal{}, err
	}
	return u.Principal(), nil
}

// Login checks credentials. Unknown emails and wrong passwords are both ErrUnauthorized;
// a locked out email is ErrRateLimited.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Tokens, model.Principal, error) {
	email = normalizeEmail(email)
	client := limiter.ClientFrom(ctx)

	allowed, _, err := s.lim.Allow(ctx, email, client)
	if err != nil {
		return model.Tokens{}, model.Principal{}, fmt.Errorf("login limiter: %w", err)
	}
	if !allowed {
		return model.Tokens{}, model.Principal{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.Principal{}, err
	}
	if err != nil || !pkgcrypto.VerifyPassword(password, u.Salt, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, client); ferr == nil && blocked {
			return model.Tokens{}, model.Principal{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.Principal{}, errs.ErrUnauthorized
	}

	access, exp, err := s.issueAccessToken(*u)
	if err != nil {
		return model.Tokens{}, model.Principal{}, err
	}
	_ = s.lim.Success(ctx, email, client)
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, u.Principal(), nil
}

// Profile loads the user behind an authenticated id.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (model.Principal, error) {
	if userID == uuid.Nil {
		return model.Principal{}, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Principal{}, err
	}
	return u.Principal(), nil
}

// issueAccessToken creates a signed HS256 JWT for the user.
func (s *AuthServiceImpl) issueAccessToken(u model.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	return signed, exp, err
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
