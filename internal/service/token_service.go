package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"user-auth/internal/apperr"
)

const (
	sessionTTL   = 2 * time.Hour
	tokenIssuer  = "user-auth"
	invalidToken = "invalid token"
)

// Claims son los datos de sesion firmados en el token.
// Activated y Blocked son una foto del usuario al momento de emitirlo.
type Claims struct {
	Activated bool `json:"activated"`
	Blocked   bool `json:"blocked"`
	jwt.RegisteredClaims
}

// TokenService emite y valida tokens de sesion HS256.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithTokenTTL cambia la duracion de la sesion.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTimeFunc reemplaza el reloj usado para emitir y validar tokens.
func WithTimeFunc(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		ttl:    sessionTTL,
		issuer: tokenIssuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Encode firma un token para subjectID con expiracion now + ttl.
func (s *TokenService) Encode(subjectID string, activated, blocked bool) (string, error) {
	if len(s.secret) == 0 {
		return "", apperr.NewInvalidArgument("token signing key is not configured")
	}
	if strings.TrimSpace(subjectID) == "" {
		return "", apperr.NewInvalidArgument("token subject is required")
	}
	now := s.now()
	claims := Claims{
		Activated: activated,
		Blocked:   blocked,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidArgument, "could not sign token", err)
	}
	return signed, nil
}

// Decode valida firma, algoritmo, expiracion y emisor. Cualquier falla es InvalidArgument.
func (s *TokenService) Decode(token string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return Claims{}, apperr.NewInvalidArgument(invalidToken)
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.InvalidArgument, invalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, apperr.Wrap(apperr.InvalidArgument, invalidToken, errors.New("empty subject"))
	}
	return claims, nil
}
