package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in identity claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Verification failures. Callers decide how these map onto responses.
var (
	ErrExpired      = errors.New("token expired")
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
)

// Claims is the verified payload of an identity token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id the token was issued for.
func (c Claims) SubjectID() string { return c.Subject }

// IsAdmin reports whether the claims carry the admin role.
func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Service signs and verifies identity tokens with a process-wide HS256
// secret loaded once at startup.
type Service struct {
	secret  []byte
	nowFunc func() time.Time
}

// NewService builds a Service. The secret must be non-empty.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &Service{secret: []byte(secret), nowFunc: time.Now}, nil
}

// Issue signs claims for the given subject with the given lifetime.
func (s *Service) Issue(subjectID, email, role string, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("subject id is required")
	}
	if role != RoleUser && role != RoleAdmin {
		return "", fmt.Errorf("unknown role %q", role)
	}
	now := s.nowFunc()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. It rejects expired tokens,
// bad signatures, and anything that is not an HS256 token with our claim
// shape. Pure function of (token, secret, current time).
func (s *Service) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.nowFunc))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		default:
			return Claims{}, ErrMalformed
		}
	}
	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
