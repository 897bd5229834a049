package jwtauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"safehaven/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const DefaultExpiry = 7 * 24 * time.Hour // 7 días, igual que la cookie

// Claims son los claims propios de los tokens de sesión.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Service firma y verifica tokens HS256. Implementa auth.AuthVerifier y
// el TokenIssuer que consumen los handlers de users.
type Service struct {
	signingKey []byte
	issuer     string
	expiresIn  time.Duration
	now        func() time.Time
}

func New(signingKey, issuer string, expiresIn time.Duration) *Service {
	if expiresIn <= 0 {
		expiresIn = DefaultExpiry
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		expiresIn:  expiresIn,
		now:        time.Now,
	}
}

// Issue firma un token de sesión para el usuario.
func (s *Service) Issue(userID, email, name string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrTokenInvalid
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	return token.SignedString(s.signingKey)
}

// Verify implementa auth.AuthVerifier.
func (s *Service) Verify(_ context.Context, tokenString string) (auth.Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return auth.Claims{}, ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Claims{}, ErrTokenExpired
		}
		return auth.Claims{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return auth.Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return auth.Claims{}, ErrTokenInvalid
	}

	return auth.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
