// Package auth issues and verifies the HS256 tokens carried in auth cookies.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers every reason a token is rejected
var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Tokens signs and parses access and refresh tokens
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a Tokens using secret as the HMAC key
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// IssueAccess returns a one hour access token for userID
func (t *Tokens) IssueAccess(userID string) (string, error) {
	return t.issue(userID, tokenTypeAccess, AccessTokenTTL)
}

// IssueRefresh returns a seven day refresh token for userID
func (t *Tokens) IssueRefresh(userID string) (string, error) {
	return t.issue(userID, tokenTypeRefresh, RefreshTokenTTL)
}

func (t *Tokens) issue(userID, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess returns the user id of a valid access token
func (t *Tokens) VerifyAccess(token string) (string, error) {
	return t.verify(token, tokenTypeAccess)
}

// VerifyRefresh returns the user id of a valid refresh token
func (t *Tokens) VerifyRefresh(token string) (string, error) {
	return t.verify(token, tokenTypeRefresh)
}

func (t *Tokens) verify(token, typ string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != typ {
		return "", fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, typ, claims.Type)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims.UserID, nil
}
