package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates bearer tokens from short-lived socket tokens.
const (
	TypeBearer  = "bearer"
	TypeWSToken = "ws_token"
)

// Claims represents the claims in our JWT tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens with a shared HMAC secret.
type Service struct {
	secret     []byte
	bearerTTL  time.Duration
	wsTokenTTL time.Duration
}

func NewService(secret []byte, bearerTTL, wsTokenTTL time.Duration) *Service {
	return &Service{secret: secret, bearerTTL: bearerTTL, wsTokenTTL: wsTokenTTL}
}

// GenerateBearerToken generates a long-lived token for REST calls.
func (s *Service) GenerateBearerToken(userID, email string) (string, error) {
	return s.sign(userID, email, TypeBearer, s.bearerTTL)
}

// GenerateWSToken generates a short-lived token a client presents as the
// ws_token query parameter when opening the dictation socket.
func (s *Service) GenerateWSToken(userID string) (string, error) {
	return s.sign(userID, "", TypeWSToken, s.wsTokenTTL)
}

func (s *Service) sign(userID, email, tokenType string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a token of the expected type and returns its claims.
func (s *Service) ValidateToken(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}
