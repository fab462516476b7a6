// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides registration, login, logout, session resolution,
// and email confirmation.
type Service struct {
	users         UserRepository
	sessions      SessionRepository
	confirmations EmailConfirmationRepository
	hasher        PasswordHasher
	logger        *slog.Logger
}

// NewService creates a new Service with a default logger.
func NewService(users UserRepository, sessions SessionRepository, confirmations EmailConfirmationRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, confirmations, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, confirmations EmailConfirmationRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("sessions repository is required")
	}
	if confirmations == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("confirmations repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{
		users:         users,
		sessions:      sessions,
		confirmations: confirmations,
		hasher:        hasher,
		logger:        logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new user account and issues an email confirmation
// token. Returns the created user and the plaintext confirmation token;
// sending the token to the user is the caller's concern.
// A duplicate email surfaces as ErrDuplicateEmail for callers to match
// with errors.Is; the wrapped message stays non-revealing.
func (s *Service) Register(ctx context.Context, firstName, surname, email, password string) (*User, string, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(firstName, surname, email, passwordHash)
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(err)
		}
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	token, tokenHash, err := GenerateConfirmationToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "generate confirmation token").
			Wrap(err)
	}

	confirmation, err := NewEmailConfirmation(user.ID, tokenHash, time.Now().Add(ConfirmationTokenExpiry))
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build confirmation").
			Wrap(err)
	}

	// The account is usable without confirmation, so a failure here
	// must not undo the registration.
	if err := s.confirmations.Create(ctx, confirmation); err != nil {
		s.logger.Warn("failed to store email confirmation",
			"user_id", user.ID, "error", err)
		return user, "", nil
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user by email and password and creates a session.
// Returns the session and plaintext token.
// Uses constant-time operations to prevent timing-based email enumeration;
// an unknown email and a wrong password produce the identical error.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*Session, string, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			userExists = false
		} else {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify password (constant-time operation for timing attack prevention)
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists {
			return nil, "", invalidCredentials()
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// If user doesn't exist OR password invalid, return same error
	if !userExists || !valid {
		return nil, "", invalidCredentials()
	}

	// Check if the stored hash needs an upgrade to current parameters
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		newHash, hashErr := s.hasher.Hash(password)
		if hashErr == nil {
			// Best effort, login succeeds regardless
			_ = s.users.UpdatePassword(ctx, user.ID, newHash) //nolint:errcheck
		}
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, remember)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "remember", remember)
	return session, token, nil
}

// Logout invalidates a session.
func (s *Service) Logout(ctx context.Context, sessionID ulid.ULID) error {
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}

// Resolve validates a session token and returns the session and its user.
// Also updates the LastSeenAt timestamp. Callers treat any SESSION_*
// error as the Anonymous identity.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, *User, error) {
	if token == "" {
		return nil, nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	// Hash the token to look it up
	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The account vanished under the session; degrade to anonymous.
			return nil, nil, oops.Code("SESSION_INVALID").Errorf("session user no longer exists")
		}
		return nil, nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	// Update last seen timestamp (non-blocking, ignore errors)
	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // Best effort, resolution succeeds regardless

	return session, user, nil
}

// ConfirmEmail validates a confirmation token, marks the user's email
// as confirmed, and clears the user's outstanding confirmation tokens.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("CONFIRM_TOKEN_INVALID").Errorf("confirmation token cannot be empty")
	}

	tokenHash := hashConfirmationToken(token)

	confirmation, err := s.confirmations.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("CONFIRM_TOKEN_INVALID").Errorf("confirmation token not found")
		}
		return nil, oops.Code("CONFIRM_FAILED").
			With("operation", "get confirmation by token hash").
			Wrap(err)
	}

	if confirmation.IsExpired() {
		return nil, oops.Code("CONFIRM_TOKEN_EXPIRED").Errorf("confirmation token has expired")
	}

	now := time.Now()
	if err := s.users.MarkEmailConfirmed(ctx, confirmation.UserID, now); err != nil {
		return nil, oops.Code("CONFIRM_FAILED").
			With("operation", "mark email confirmed").
			With("user_id", confirmation.UserID).
			Wrap(err)
	}

	// Cleanup - the confirmation already took effect, so a failure here
	// is logged and ignored.
	if err := s.confirmations.DeleteByUser(ctx, confirmation.UserID); err != nil {
		s.logger.Warn("failed to delete confirmation tokens",
			"user_id", confirmation.UserID, "error", err)
	}

	user, err := s.users.GetByID(ctx, confirmation.UserID)
	if err != nil {
		return nil, oops.Code("CONFIRM_FAILED").
			With("operation", "get user by id").
			With("user_id", confirmation.UserID).
			Wrap(err)
	}

	s.logger.Info("email confirmed", "user_id", user.ID)
	return user, nil
}

// invalidCredentials builds the generic login failure. The message is
// identical for unknown email and wrong password to avoid enumeration.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("email or password incorrect")
}

// IsInvalidCredentials reports whether err is the generic login failure.
func IsInvalidCredentials(err error) bool {
	return hasCode(err, "AUTH_INVALID_CREDENTIALS")
}

// IsDuplicateEmail reports whether err stems from a duplicate email.
func IsDuplicateEmail(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}

// IsConfirmationInvalid reports whether err means the confirmation token
// was bad or stale, as opposed to a store failure.
func IsConfirmationInvalid(err error) bool {
	return hasCode(err, "CONFIRM_TOKEN_INVALID") ||
		hasCode(err, "CONFIRM_TOKEN_EXPIRED")
}

// IsSessionInvalid reports whether err means the session should degrade
// to the Anonymous identity rather than fail the request.
func IsSessionInvalid(err error) bool {
	return hasCode(err, "SESSION_INVALID") ||
		hasCode(err, "SESSION_EXPIRED") ||
		hasCode(err, "SESSION_TOKEN_EMPTY")
}

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
