// Package auth issues and verifies HS256 bearer tokens whose subject is the
// pantry user id.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrNoSecret     = errors.New("auth: signing secret not configured")
)

type Claims struct {
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(cfg Config) (*JWT, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	return &JWT{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.TTL, now: time.Now}, nil
}

// Issue signs a token for userID. Used by tooling and tests; the service
// itself only verifies.
func (j *JWT) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: issue: %w", ErrInvalidToken)
	}
	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("auth: issue: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns its subject.
func (j *JWT) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
