// Package auth binds a wallet address to a session token. Mutating lending
// endpoints require the token; the bound address is the only one the session
// may borrow or repay for.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

type Claims struct {
	Address   string `json:"adr"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewJWTManager(issuer, audience, signingKey string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(signingKey),
		ttl:      ttl,
	}
}

// Mint issues a session token bound to an already-normalized address.
func (m *JWTManager) Mint(address string) (token string, sessionID string, err error) {
	now := time.Now().UTC()
	sessionID = uuid.NewString()
	claims := Claims{
		Address:   address,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  []string{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = tok.SignedString(m.secret)
	return token, sessionID, err
}

func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}
	ok := false
	for _, aud := range claims.Audience {
		if aud == m.audience {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errors.New("invalid audience")
	}
	if claims.Address == "" {
		return nil, errors.New("no address bound")
	}
	return claims, nil
}
