package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/jaevor/go-nanoid"
)

// Claims carries the user in sub and a unique jti used for revocation.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a signed JWT with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Claims    *Claims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	newID  func() string
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, newID: gen, now: time.Now}, nil
}

func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Secret is shared with the route gate that verifies signatures.
func (m *TokenManager) Secret() []byte { return m.secret }

func (m *TokenManager) Issue(userID string) (Token, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        m.newID(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp, Claims: claims}, nil
}

func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
