// Package auth issues and verifies the bearer tokens that carry a session
// subject, and hashes employee credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// Claims is the JWT payload of a session token
type Claims struct {
	jwt.RegisteredClaims
	Roles string `json:"roles"`
}

// TokenServiceConfig holds token signing settings
type TokenServiceConfig struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
}

// TokenService implements port.TokenService with HS256 JWTs
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	revoked    port.RevocationList
	now        func() time.Time
}

// NewTokenService creates a token service. revoked may be nil when logout
// does not invalidate tokens.
func NewTokenService(cfg TokenServiceConfig, revoked port.RevocationList) *TokenService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		signingKey: cfg.SigningKey,
		issuer:     cfg.Issuer,
		ttl:        ttl,
		revoked:    revoked,
		now:        time.Now,
	}
}

// Issue signs a token asserting subject for the configured TTL
func (ts *TokenService) Issue(subject string) (*port.SessionToken, error) {
	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		Roles: entity.RoleUser,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	return &port.SessionToken{
		Raw:       signed,
		ID:        claims.ID,
		Subject:   subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate parses raw and returns its session data. Every failure is
// reported as ErrUnauthorized wrapping the cause.
func (ts *TokenService) Validate(raw string) (*port.SessionToken, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: unable to decode session", ErrUnauthorized)
	}

	if ts.revoked != nil && claims.ID != "" && ts.revoked.IsRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	session := &port.SessionToken{
		Raw:     raw,
		ID:      claims.ID,
		Subject: claims.Subject,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

var _ port.TokenService = (*TokenService)(nil)
