// Package auth issues and validates admin session tokens. The storefront
// itself is anonymous; every privileged route requires a valid token.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidCredentials is returned for a wrong email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for a missing, malformed or expired token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated caller. Any non-nil identity is treated
// as fully authorized; no role granularity is modeled.
type Identity struct {
	Email string
}

// Service checks credentials against the configured admin account and
// signs session tokens.
type Service struct {
	adminEmail    string
	adminPassword string
	secret        []byte
	tokenTTL      time.Duration
}

func NewService(adminEmail, adminPassword, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		secret:        []byte(secret),
		tokenTTL:      tokenTTL,
	}
}

// SignIn validates the credentials and returns a signed session token.
func (s *Service) SignIn(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	if !emailOK || !passOK {
		return "", ErrInvalidCredentials
	}
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates the token and returns the identity it names.
func (s *Service) ParseToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Email: sub}, nil
}
