// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// fakeHasher is a transparent stand-in for argon2id so service tests
// stay fast. Hashes are "hashed:<password>"; anything prefixed "legacy:"
// reports as needing an upgrade.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(password, hash string) (bool, error) {
	return hash == "hashed:"+password || hash == "legacy:"+password, nil
}

func (fakeHasher) NeedsUpgrade(hash string) bool {
	return strings.HasPrefix(hash, "legacy:")
}

// memUsers is an in-memory auth.UserRepository.
type memUsers struct {
	nextID    int64
	users     map[int64]*auth.User
	createErr error
	updateErr error
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]*auth.User)}
}

func (m *memUsers) Create(_ context.Context, user *auth.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(user.Email) {
			return auth.ErrDuplicateEmail
		}
	}
	m.nextID++
	user.ID = m.nextID
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) MarkEmailConfirmed(_ context.Context, id int64, confirmedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.ConfirmEmail(confirmedAt)
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// memSessions is an in-memory auth.SessionRepository.
type memSessions struct {
	sessions map[ulid.ULID]*auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[ulid.ULID]*auth.Session)}
}

func (m *memSessions) Create(_ context.Context, session *auth.Session) error {
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	for _, s := range m.sessions {
		if s.TokenHash == tokenHash {
			clone := *s
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memSessions) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	s.LastSeenAt = lastSeen
	return nil
}

func (m *memSessions) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := m.sessions[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID int64) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// memConfirmations is an in-memory auth.EmailConfirmationRepository.
type memConfirmations struct {
	confirmations map[ulid.ULID]*auth.EmailConfirmation
	createErr     error
}

func newMemConfirmations() *memConfirmations {
	return &memConfirmations{confirmations: make(map[ulid.ULID]*auth.EmailConfirmation)}
}

func (m *memConfirmations) Create(_ context.Context, c *auth.EmailConfirmation) error {
	if m.createErr != nil {
		return m.createErr
	}
	clone := *c
	m.confirmations[c.ID] = &clone
	return nil
}

func (m *memConfirmations) GetByTokenHash(_ context.Context, tokenHash string) (*auth.EmailConfirmation, error) {
	for _, c := range m.confirmations {
		if c.TokenHash == tokenHash {
			clone := *c
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memConfirmations) DeleteByUser(_ context.Context, userID int64) error {
	for id, c := range m.confirmations {
		if c.UserID == userID {
			delete(m.confirmations, id)
		}
	}
	return nil
}

func (m *memConfirmations) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for id, c := range m.confirmations {
		if c.IsExpired() {
			delete(m.confirmations, id)
			n++
		}
	}
	return n, nil
}

type fixture struct {
	users         *memUsers
	sessions      *memSessions
	confirmations *memConfirmations
	service       *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:         newMemUsers(),
		sessions:      newMemSessions(),
		confirmations: newMemConfirmations(),
	}
	service, err := auth.NewService(f.users, f.sessions, f.confirmations, fakeHasher{})
	require.NoError(t, err)
	f.service = service
	return f
}

func TestNewService(t *testing.T) {
	t.Run("rejects nil dependencies", func(t *testing.T) {
		_, err := auth.NewService(nil, newMemSessions(), newMemConfirmations(), fakeHasher{})
		errutil.AssertErrorCode(t, err, "AUTH_NIL_DEPENDENCY")

		_, err = auth.NewService(newMemUsers(), nil, newMemConfirmations(), fakeHasher{})
		errutil.AssertErrorCode(t, err, "AUTH_NIL_DEPENDENCY")

		_, err = auth.NewService(newMemUsers(), newMemSessions(), nil, fakeHasher{})
		errutil.AssertErrorCode(t, err, "AUTH_NIL_DEPENDENCY")

		_, err = auth.NewService(newMemUsers(), newMemSessions(), newMemConfirmations(), nil)
		errutil.AssertErrorCode(t, err, "AUTH_NIL_DEPENDENCY")
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and confirmation token", func(t *testing.T) {
		f := newFixture(t)

		user, token, err := f.service.Register(ctx, "Alice", "Smith", "Alice@example.com", "secretpass")
		require.NoError(t, err)
		assert.Positive(t, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEmpty(t, token)
		assert.Len(t, f.confirmations.confirmations, 1)

		stored, err := f.users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "hashed:secretpass", stored.PasswordHash)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)

		_, _, err = f.service.Register(ctx, "Bob", "Jones", "ALICE@example.com", "otherpass")
		require.Error(t, err)
		assert.True(t, auth.IsDuplicateEmail(err))
	})

	t.Run("empty password fails", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "")
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})

	t.Run("confirmation store failure does not undo registration", func(t *testing.T) {
		f := newFixture(t)
		f.confirmations.createErr = errors.New("disk on fire")

		user, token, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)
		assert.Positive(t, user.ID)
		assert.Empty(t, token)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, f *fixture) *auth.User {
		t.Helper()
		user, _, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)
		return user
	}

	t.Run("valid credentials create a session", func(t *testing.T) {
		f := newFixture(t)
		user := register(t, f)

		session, token, err := f.service.Login(ctx, "alice@example.com", "secretpass", false)
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
		assert.False(t, session.Remember)
		assert.NotEmpty(t, token)
		assert.Equal(t, auth.HashSessionToken(token), session.TokenHash)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		_, _, err := f.service.Login(ctx, "ALICE@Example.com", "secretpass", false)
		require.NoError(t, err)
	})

	t.Run("remember extends session expiry", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		session, _, err := f.service.Login(ctx, "alice@example.com", "secretpass", true)
		require.NoError(t, err)
		assert.True(t, session.Remember)
		assert.WithinDuration(t, time.Now().Add(auth.RememberedExpiry), session.ExpiresAt, time.Minute)
	})

	t.Run("wrong password and unknown email produce identical errors", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		_, _, wrongPass := f.service.Login(ctx, "alice@example.com", "wrongpass", false)
		require.Error(t, wrongPass)
		assert.True(t, auth.IsInvalidCredentials(wrongPass))

		_, _, unknown := f.service.Login(ctx, "nobody@example.com", "secretpass", false)
		require.Error(t, unknown)
		assert.True(t, auth.IsInvalidCredentials(unknown))

		assert.Equal(t, wrongPass.Error(), unknown.Error())
	})

	t.Run("legacy hash is upgraded on successful login", func(t *testing.T) {
		f := newFixture(t)
		user := register(t, f)
		f.users.users[user.ID].PasswordHash = "legacy:secretpass"

		_, _, err := f.service.Login(ctx, "alice@example.com", "secretpass", false)
		require.NoError(t, err)

		stored, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "hashed:secretpass", stored.PasswordHash)
	})

	t.Run("failed upgrade does not block login", func(t *testing.T) {
		f := newFixture(t)
		user := register(t, f)
		f.users.users[user.ID].PasswordHash = "legacy:secretpass"
		f.users.updateErr = errors.New("read-only replica")

		_, _, err := f.service.Login(ctx, "alice@example.com", "secretpass", false)
		require.NoError(t, err)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)
		session, _, err := f.service.Login(ctx, "alice@example.com", "secretpass", false)
		require.NoError(t, err)

		require.NoError(t, f.service.Logout(ctx, session.ID))
		assert.Empty(t, f.sessions.sessions)
	})

	t.Run("unknown session returns SESSION_NOT_FOUND", func(t *testing.T) {
		f := newFixture(t)
		err := f.service.Logout(ctx, ulid.Make())
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, f *fixture) (*auth.Session, string) {
		t.Helper()
		_, _, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)
		session, token, err := f.service.Login(ctx, "alice@example.com", "secretpass", false)
		require.NoError(t, err)
		return session, token
	}

	t.Run("valid token resolves to session and user", func(t *testing.T) {
		f := newFixture(t)
		created, token := login(t, f)

		session, user, err := f.service.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, session.ID)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("resolution updates last seen", func(t *testing.T) {
		f := newFixture(t)
		created, token := login(t, f)

		before := f.sessions.sessions[created.ID].LastSeenAt
		time.Sleep(5 * time.Millisecond)

		_, _, err := f.service.Resolve(ctx, token)
		require.NoError(t, err)
		assert.True(t, f.sessions.sessions[created.ID].LastSeenAt.After(before))
	})

	t.Run("empty token is invalid", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.service.Resolve(ctx, "")
		require.Error(t, err)
		assert.True(t, auth.IsSessionInvalid(err))
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.service.Resolve(ctx, "no-such-token")
		require.Error(t, err)
		assert.True(t, auth.IsSessionInvalid(err))
	})

	t.Run("expired session is invalid", func(t *testing.T) {
		f := newFixture(t)
		created, token := login(t, f)
		f.sessions.sessions[created.ID].ExpiresAt = time.Now().Add(-time.Minute)

		_, _, err := f.service.Resolve(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsSessionInvalid(err))
	})

	t.Run("session whose user vanished is invalid", func(t *testing.T) {
		f := newFixture(t)
		created, token := login(t, f)
		delete(f.users.users, created.UserID)

		_, _, err := f.service.Resolve(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsSessionInvalid(err))
	})
}

func TestConfirmEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token confirms the email", func(t *testing.T) {
		f := newFixture(t)
		registered, token, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)

		user, err := f.service.ConfirmEmail(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.True(t, user.EmailConfirmed)
		require.NotNil(t, user.EmailConfirmedAt)

		// Tokens are single-use; the second visit fails.
		_, err = f.service.ConfirmEmail(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsConfirmationInvalid(err))
	})

	t.Run("empty token is invalid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ConfirmEmail(ctx, "")
		assert.True(t, auth.IsConfirmationInvalid(err))
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ConfirmEmail(ctx, "no-such-token")
		assert.True(t, auth.IsConfirmationInvalid(err))
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		f := newFixture(t)
		_, token, err := f.service.Register(ctx, "Alice", "Smith", "alice@example.com", "secretpass")
		require.NoError(t, err)

		for _, c := range f.confirmations.confirmations {
			c.ExpiresAt = time.Now().Add(-time.Minute)
		}

		_, err = f.service.ConfirmEmail(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsConfirmationInvalid(err))
	})
}
