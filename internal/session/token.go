package session

import (
	"fmt"
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"tableside/internal/models"
)

const tokenIssuer = "tableside"

// Tokens issues and verifies HS256 tokens that bind a client to one session.
// The token id (jti) is the session id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the session
func (t *Tokens) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.StandardClaims{
		Id:        sessionID,
		Issuer:    tokenIssuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(t.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the session id
func (t *Tokens) Verify(token string) (string, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", models.ErrInvalidToken
	}
	if claims.Issuer != tokenIssuer || claims.Id == "" {
		return "", models.ErrInvalidToken
	}
	return claims.Id, nil
}
