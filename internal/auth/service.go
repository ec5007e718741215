package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/metrics"
	"github.com/sraza0098/wisp-backend/internal/store"
)

type Service struct {
	users     store.Users
	hasher    *Hasher
	tokens    *TokenManager
	revoker   Revoker
	verifiers map[string]Verifier
	log       *zap.Logger
	now       func() time.Time
}

func NewService(users store.Users, hasher *Hasher, tokens *TokenManager, revoker Revoker, log *zap.Logger, verifiers ...Verifier) *Service {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	s := &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		revoker:   revoker,
		verifiers: make(map[string]Verifier),
		log:       log,
		now:       time.Now,
	}
	for _, v := range verifiers {
		s.verifiers[v.Provider()] = v
	}
	return s
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

func (s *Service) Signup(ctx context.Context, in domain.Signup) (*domain.User, Token, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, Token{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, Token{}, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, Token{}, err
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, Token{}, err
	}
	s.log.Info("user signed up", zap.String("user", u.ID))
	return u, tok, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, Token, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Token{}, err
	}
	if u.PasswordHash == "" && u.OAuth {
		metrics.AuthFailures.WithLabelValues("oauth_account").Inc()
		return nil, Token{}, ErrOAuthAccount
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, Token{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, u)
}

// OAuthLogin verifies credential with provider and signs the matching user in,
// creating the account on first use.
func (s *Service) OAuthLogin(ctx context.Context, provider, credential string) (*domain.User, Token, error) {
	v, ok := s.verifiers[provider]
	if !ok {
		return nil, Token{}, ErrUnknownProvider
	}
	id, err := v.Verify(ctx, credential)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("oauth_rejected").Inc()
		s.log.Info("oauth verification failed", zap.String("provider", provider), zap.Error(err))
		if errors.Is(err, ErrOAuthRejected) {
			return nil, Token{}, err
		}
		return nil, Token{}, fmt.Errorf("%w: %v", ErrOAuthRejected, err)
	}

	email := domain.NormalizeEmail(id.Email)
	u, err := s.users.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u = &domain.User{
			FirstName:   fallback(id.FirstName, email),
			LastName:    fallback(id.LastName, "-"),
			Email:       email,
			Picture:     id.Picture,
			OAuth:       true,
			OAuthMethod: provider,
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return nil, Token{}, err
		}
		s.log.Info("user signed up", zap.String("user", u.ID), zap.String("provider", provider))
	case err != nil:
		return nil, Token{}, err
	}
	return s.startSession(ctx, u)
}

func (s *Service) startSession(ctx context.Context, u *domain.User) (*domain.User, Token, error) {
	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, Token{}, err
	}
	u.LastLoginAt = &now
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, Token{}, err
	}
	metrics.AuthSuccess.Inc()
	return u, tok, nil
}

// Authenticate resolves a bearer token to its user. It rejects revoked tokens,
// deleted users and tokens issued before the last password change.
func (s *Service) Authenticate(ctx context.Context, tokenStr string) (*domain.User, *Claims, error) {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
		return nil, nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail open: a Redis outage must not lock every user out.
		s.log.Error("revocation check failed", zap.Error(err))
	}
	if revoked {
		metrics.AuthFailures.WithLabelValues("revoked").Inc()
		return nil, nil, ErrTokenRevoked
	}
	u, err := s.users.UserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		metrics.AuthFailures.WithLabelValues("user_gone").Inc()
		return nil, nil, ErrUserGone
	}
	if err != nil {
		return nil, nil, err
	}
	if u.PasswordChangedAfter(claims.IssuedAt.Time) {
		metrics.AuthFailures.WithLabelValues("password_changed").Inc()
		return nil, nil, ErrPasswordChanged
	}
	return u, claims, nil
}

// ChangePassword replaces the password and returns a fresh token;
// tokens issued earlier stop authenticating.
func (s *Service) ChangePassword(ctx context.Context, userID, current, password, confirm string) (*domain.User, Token, error) {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, Token{}, err
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return nil, Token{}, fmt.Errorf("%w: current password", ErrPasswordMismatch)
	}
	if err := domain.ValidatePassword(password, confirm); err != nil {
		return nil, Token{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, Token{}, fmt.Errorf("hash password: %w", err)
	}
	// One second back so the token issued below is not older than the change.
	changedAt := s.now().UTC().Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, userID, hash, changedAt); err != nil {
		return nil, Token{}, err
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt

	tok, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, Token{}, err
	}
	return u, tok, nil
}

// DeleteAccount removes the user after re-checking their password.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return ErrPasswordMismatch
	}
	return s.users.DeleteUser(ctx, userID)
}

// Logout revokes tokenStr if it is still valid. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, tokenStr string) error {
	if tokenStr == "" {
		return nil
	}
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
