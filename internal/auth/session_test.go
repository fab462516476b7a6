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

func TestNewSession(t *testing.T) {
	t.Run("creates valid session", func(t *testing.T) {
		session, err := auth.NewSession(1, "somehash", false)
		require.NoError(t, err)
		assert.NotZero(t, session.ID)
		assert.Equal(t, int64(1), session.UserID)
		assert.Equal(t, "somehash", session.TokenHash)
		assert.False(t, session.Remember)
	})

	t.Run("plain session expires after a day", func(t *testing.T) {
		session, err := auth.NewSession(1, "somehash", false)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(auth.SessionExpiry), session.ExpiresAt, time.Minute)
	})

	t.Run("remembered session expires after thirty days", func(t *testing.T) {
		session, err := auth.NewSession(1, "somehash", true)
		require.NoError(t, err)
		assert.True(t, session.Remember)
		assert.WithinDuration(t, time.Now().Add(auth.RememberedExpiry), session.ExpiresAt, time.Minute)
	})

	t.Run("rejects non-positive user id", func(t *testing.T) {
		_, err := auth.NewSession(0, "somehash", false)
		assert.Error(t, err)
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession(1, "", false)
		assert.Error(t, err)
	})
}

func TestSessionExpiry(t *testing.T) {
	session, err := auth.NewSession(1, "somehash", false)
	require.NoError(t, err)

	assert.False(t, session.IsExpired())
	assert.False(t, session.IsExpiredAt(session.ExpiresAt))
	assert.True(t, session.IsExpiredAt(session.ExpiresAt.Add(time.Second)))
}

func TestGenerateSessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	// 32 random bytes, hex-encoded
	assert.Len(t, token, auth.SessionTokenBytes*2)
	assert.Len(t, hash, 64)
	assert.Equal(t, auth.HashSessionToken(token), hash)

	token2, _, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	t.Run("valid token verifies", func(t *testing.T) {
		ok, err := auth.VerifySessionToken(token, hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong token fails", func(t *testing.T) {
		ok, err := auth.VerifySessionToken("wrongtoken", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty token returns error", func(t *testing.T) {
		_, err := auth.VerifySessionToken("", hash)
		assert.Error(t, err)
	})

	t.Run("empty hash returns error", func(t *testing.T) {
		_, err := auth.VerifySessionToken(token, "")
		assert.Error(t, err)
	})
}
