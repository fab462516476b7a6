// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// EmailConfirmationRepository implements auth.EmailConfirmationRepository
// using PostgreSQL.
type EmailConfirmationRepository struct {
	db DB
}

// NewEmailConfirmationRepository creates a new EmailConfirmationRepository.
func NewEmailConfirmationRepository(db DB) *EmailConfirmationRepository {
	return &EmailConfirmationRepository{db: db}
}

// Create stores a new email confirmation.
func (r *EmailConfirmationRepository) Create(ctx context.Context, confirmation *auth.EmailConfirmation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_confirmations (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		confirmation.ID.String(),
		confirmation.UserID,
		confirmation.TokenHash,
		confirmation.ExpiresAt,
		confirmation.CreatedAt,
	)
	if err != nil {
		return oops.Code("CONFIRM_CREATE_FAILED").
			With("operation", "insert email_confirmation").
			With("user_id", confirmation.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a confirmation by its token hash.
func (r *EmailConfirmationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.EmailConfirmation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM email_confirmations
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr     string
		userID    int64
		hash      string
		expiresAt time.Time
		createdAt time.Time
	)
	err := row.Scan(&idStr, &userID, &hash, &expiresAt, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CONFIRM_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CONFIRM_GET_BY_TOKEN_FAILED").
			With("operation", "get confirmation by token hash").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("CONFIRM_INVALID_ID").
			With("operation", "parse confirmation id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.EmailConfirmation{
		ID:        id,
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// DeleteByUser removes all confirmations for a user.
func (r *EmailConfirmationRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM email_confirmations WHERE user_id = $1
	`, userID)
	if err != nil {
		return oops.Code("CONFIRM_DELETE_BY_USER_FAILED").
			With("operation", "delete confirmations by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired confirmations and returns the count.
func (r *EmailConfirmationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM email_confirmations WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("CONFIRM_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired confirmations").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.EmailConfirmationRepository = (*EmailConfirmationRepository)(nil)
