package authUtils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims identify one login session.
type SessionClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer signs and parses HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateAndSetToken generates a JWT token for a given user ID
func (t *TokenIssuer) GenerateAndSetToken(userID string) (string, SessionClaims, error) {
	claims := SessionClaims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: t.now().Add(t.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"jti":     claims.TokenID,
		"iat":     t.now().Unix(),
		"exp":     claims.ExpiresAt.Unix(),
	})

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", SessionClaims{}, err
	}
	return tokenString, claims, nil
}

// Parse validates the signature and expiry and returns the session claims.
func (t *TokenIssuer) Parse(tokenString string) (SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	tokenID, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if userID == "" || tokenID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return SessionClaims{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
