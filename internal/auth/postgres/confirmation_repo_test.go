// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
)

func newConfirmationMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.EmailConfirmationRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, postgres.NewEmailConfirmationRepository(mock)
}

func TestEmailConfirmationRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, repo := newConfirmationMock(t)

	confirmation, err := auth.NewEmailConfirmation(1, "tokenhash", time.Now().Add(auth.ConfirmationTokenExpiry))
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO email_confirmations`).
		WithArgs(confirmation.ID.String(), confirmation.UserID, confirmation.TokenHash,
			confirmation.ExpiresAt, confirmation.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(ctx, confirmation))
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestEmailConfirmationRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("returns stored confirmation", func(t *testing.T) {
		mock, repo := newConfirmationMock(t)
		id := ulid.Make()

		mock.ExpectQuery(`SELECT id, user_id, token_hash, expires_at, created_at`).
			WithArgs("tokenhash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}).
				AddRow(id.String(), int64(1), "tokenhash", now.Add(time.Hour), now))

		confirmation, err := repo.GetByTokenHash(ctx, "tokenhash")
		require.NoError(t, err)
		assert.Equal(t, id, confirmation.ID)
		assert.Equal(t, int64(1), confirmation.UserID)
	})

	t.Run("missing confirmation maps to ErrNotFound", func(t *testing.T) {
		mock, repo := newConfirmationMock(t)

		mock.ExpectQuery(`SELECT id, user_id, token_hash, expires_at, created_at`).
			WithArgs("unknown").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByTokenHash(ctx, "unknown")
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrNotFound))
	})
}

func TestEmailConfirmationRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	mock, repo := newConfirmationMock(t)

	mock.ExpectExec(`DELETE FROM email_confirmations WHERE user_id`).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, repo.DeleteByUser(ctx, 1))
}

func TestEmailConfirmationRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	mock, repo := newConfirmationMock(t)

	mock.ExpectExec(`DELETE FROM email_confirmations WHERE expires_at`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
