package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/localgroup/localgroup-server/internal/apperr"
)

type Claims struct {
	UserID string
	Email  string
	Phone  string
}

// TokenManager issues and validates HS256 bearer tokens. The same
// validator covers REST (Authorization header) and the WS handshake
// (?token= query).
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Issue(userID, email, phone string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"phone": phone,
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	})
	return t.SignedString(m.secret)
}

func (m *TokenManager) Validate(tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, apperr.ErrUnauthorized
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.ErrUnauthorized
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return Claims{}, apperr.ErrUnauthorized
	}
	email, _ := mc["email"].(string)
	phone, _ := mc["phone"].(string)
	return Claims{UserID: sub, Email: email, Phone: phone}, nil
}
