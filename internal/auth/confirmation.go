// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Confirmation token configuration.
const (
	ConfirmationTokenBytes  = 32 // 32 bytes = 64 hex chars
	ConfirmationTokenExpiry = 48 * time.Hour
)

// EmailConfirmation represents a pending email confirmation.
type EmailConfirmation struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewEmailConfirmation creates a validated EmailConfirmation instance.
func NewEmailConfirmation(userID int64, tokenHash string, expiresAt time.Time) (*EmailConfirmation, error) {
	if userID <= 0 {
		return nil, oops.Code("CONFIRM_INVALID_USER").Errorf("user ID must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("CONFIRM_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("CONFIRM_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &EmailConfirmation{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the confirmation token has expired.
func (c *EmailConfirmation) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// GenerateConfirmationToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token goes into the confirmation link sent to the user;
// the hash is stored in the database.
func GenerateConfirmationToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ConfirmationTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("CONFIRM_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = hashConfirmationToken(token)

	return token, hash, nil
}

// VerifyConfirmationToken checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyConfirmationToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := hashConfirmationToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// hashConfirmationToken computes the SHA256 hash of a token.
func hashConfirmationToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// EmailConfirmationRepository manages email confirmation persistence.
type EmailConfirmationRepository interface {
	// Create stores a new email confirmation.
	Create(ctx context.Context, confirmation *EmailConfirmation) error

	// GetByTokenHash retrieves a confirmation by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*EmailConfirmation, error)

	// DeleteByUser removes all confirmations for a user.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all expired confirmations.
	DeleteExpired(ctx context.Context) (int64, error)
}
