// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestNewUser(t *testing.T) {
	t.Run("creates valid user", func(t *testing.T) {
		user, err := auth.NewUser("Alice", "Smith", "alice@example.com", "somehash")
		require.NoError(t, err)
		assert.Zero(t, user.ID, "ID is assigned by the store")
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.Surname)
		assert.False(t, user.EmailConfirmed)
		assert.Nil(t, user.EmailConfirmedAt)
	})

	t.Run("normalizes email to lowercase", func(t *testing.T) {
		user, err := auth.NewUser("Alice", "Smith", "Alice@Example.COM", "somehash")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := auth.NewUser("", "Smith", "alice@example.com", "somehash")
		assert.Error(t, err)
		_, err = auth.NewUser("Alice", "", "alice@example.com", "somehash")
		assert.Error(t, err)
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := auth.NewUser("Alice", "Smith", "", "somehash")
		assert.Error(t, err)
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		_, err := auth.NewUser("Alice", "Smith", "alice@example.com", "")
		assert.Error(t, err)
	})
}

func TestUserConfirmEmail(t *testing.T) {
	user, err := auth.NewUser("Alice", "Smith", "alice@example.com", "somehash")
	require.NoError(t, err)

	first := time.Now()
	user.ConfirmEmail(first)
	require.True(t, user.EmailConfirmed)
	require.NotNil(t, user.EmailConfirmedAt)
	assert.Equal(t, first, *user.EmailConfirmedAt)

	// A second confirmation keeps the original timestamp.
	user.ConfirmEmail(first.Add(time.Hour))
	assert.Equal(t, first, *user.EmailConfirmedAt)
}
