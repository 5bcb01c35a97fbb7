// Package storage mints the time-boxed credentials the service relays for
// mission photos and signatures. The object store itself is an external
// collaborator; the service never handles file bytes, only signed URLs
// scoped to one object key under the mission's namespace.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// GrantAction distinguishes upload from read credentials.
type GrantAction string

const (
	ActionUpload GrantAction = "upload"
	ActionRead   GrantAction = "read"
)

// Grant is a signed, expiring credential for a single object key.
type Grant struct {
	Key       string      `json:"key"`
	URL       string      `json:"url"`
	Action    GrantAction `json:"action"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Signer issues HS256-signed storage grants.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewSigner builds a signer. TTL defaults to one hour.
func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
	}
}

type grantClaims struct {
	Key    string      `json:"key"`
	Action GrantAction `json:"action"`
	jwt.RegisteredClaims
}

// ObjectKey builds the canonical storage key for a mission object.
func ObjectKey(missionID, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%d_%s", missionID, at.Unix(), sanitizeFilename(filename))
}

// SignUpload mints a write credential for the given key.
func (s *Signer) SignUpload(key string) (Grant, error) {
	return s.sign(key, ActionUpload)
}

// SignRead mints a read credential for the given key.
func (s *Signer) SignRead(key string) (Grant, error) {
	return s.sign(key, ActionRead)
}

func (s *Signer) sign(key string, action GrantAction) (Grant, error) {
	expiresAt := time.Now().Add(s.ttl)
	claims := &grantClaims{
		Key:    key,
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Grant{}, err
	}
	return Grant{
		Key:       key,
		URL:       fmt.Sprintf("%s/%s?token=%s", s.baseURL, key, url.QueryEscape(token)),
		Action:    action,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks a grant token and returns the key it is scoped to.
func (s *Signer) Verify(tokenStr string, action GrantAction) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &grantClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*grantClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid grant claims")
	}
	if claims.Action != action {
		return "", errors.New("grant action mismatch")
	}
	return claims.Key, nil
}

// TTL exposes the credential validity window.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "photo"
	}
	return name
}
