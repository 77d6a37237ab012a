// Package credentials seals the opaque credentials bag a NodeContext
// carries into a signed JWT so it can cross a process boundary (queued
// for a later attempt, handed to a remote worker) without being forged
// or read by anything that doesn't hold the signing secret.
package credentials

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sealer seals and verifies a workflow execution's credentials bag using
// HMAC (HS256). It intentionally supports only symmetric signing: the
// credentials bag never needs to be verified by a third party, only by
// the same engine deployment that sealed it.
type Sealer struct {
	secret []byte
	ttl    time.Duration
}

// NewSealer builds a Sealer with the given HMAC secret. ttl bounds how
// long a sealed token remains valid; zero means one hour.
func NewSealer(secret []byte, ttl time.Duration) *Sealer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Sealer{secret: secret, ttl: ttl}
}

type claims struct {
	Bag json.RawMessage `json:"bag"`
	jwt.RegisteredClaims
}

// Seal marshals bag as JSON, embeds it as a claim, and signs the result.
func (s *Sealer) Seal(workflowExecutionID string, bag any) (string, error) {
	raw, err := json.Marshal(bag)
	if err != nil {
		return "", fmt.Errorf("credentials: marshal bag: %w", err)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Bag: raw,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   workflowExecutionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Unseal verifies signature and expiry, then decodes the bag into out.
func (s *Sealer) Unseal(token string, out any) (workflowExecutionID string, err error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("credentials: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("credentials: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("credentials: token invalid")
	}
	if out != nil {
		if err := json.Unmarshal(c.Bag, out); err != nil {
			return "", fmt.Errorf("credentials: unmarshal bag: %w", err)
		}
	}
	return c.Subject, nil
}
