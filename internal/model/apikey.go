package model

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// API key lifecycle states
const (
	KeyStatusActive  = "active"
	KeyStatusRevoked = "revoked"
)

// ApiKey is a bearer credential scoped to a customer, used by external
// desktop software to pull venue data. Only the bcrypt hash of the
// secret is stored; the plaintext is shown exactly once at issue time.
// Lookup is by prefix, then hash compare.
type ApiKey struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	Prefix     string         `json:"prefix" gorm:"type:varchar(16);uniqueIndex"`
	Hash       string         `json:"-" gorm:"type:varchar(255)"`
	Label      string         `json:"label" gorm:"type:varchar(100)"`
	Status     string         `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// NewKeyMaterial generates a fresh prefix and secret for an API key.
// The token handed to the client is "okj_<prefix>.<secret>".
func NewKeyMaterial() (prefix, secret string) {
	return generateRandomString(6), generateRandomString(32)
}

// FormatKey assembles the plaintext token from its parts
func FormatKey(prefix, secret string) string {
	return fmt.Sprintf("okj_%s.%s", prefix, secret)
}

// ParseKey splits a plaintext token back into prefix and secret
func ParseKey(token string) (prefix, secret string, ok bool) {
	rest, found := strings.CutPrefix(token, "okj_")
	if !found {
		return "", "", false
	}
	prefix, secret, found = strings.Cut(rest, ".")
	if !found || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}

// generateRandomString creates a secure random URL-safe string from n bytes
func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
