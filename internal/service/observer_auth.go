package service

import (
	"errors"
	"fmt"
	"time"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type ObserverAuth interface {
	Enabled() bool
	IssueToken(subject string, ttl time.Duration) (string, time.Time, error)
	ValidateToken(tokenString string) (*models.ObserverClaims, error)
}

// ObserverAuthService signs and checks HS256 observer tokens. With an empty
// secret it is disabled and the alert stream is open.
type ObserverAuthService struct {
	secret []byte
	now    func() time.Time
}

func NewObserverAuthService(secret string) *ObserverAuthService {
	return &ObserverAuthService{secret: []byte(secret), now: time.Now}
}

func (s *ObserverAuthService) Enabled() bool {
	return len(s.secret) > 0
}

func (s *ObserverAuthService) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	const op = "service.IssueToken"

	if !s.Enabled() {
		return "", time.Time{}, fmt.Errorf("%s: observer secret is not configured", op)
	}
	if subject == "" || ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%s: %w: subject and positive ttl are required", op, custom_err.ErrInvalidInput)
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := models.ObserverClaims{
		Role: models.ObserverRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return signed, expiresAt, nil
}

func (s *ObserverAuthService) ValidateToken(tokenString string) (*models.ObserverClaims, error) {
	claims := &models.ObserverClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, custom_err.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, custom_err.ErrTokenNotActive
		}
		return nil, custom_err.ErrInvalidToken
	}

	if !token.Valid || claims.Role != models.ObserverRole || claims.Subject == "" {
		return nil, custom_err.ErrInvalidToken
	}

	return claims, nil
}
