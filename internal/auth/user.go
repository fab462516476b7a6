// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// User represents a registered account. The ID is assigned by the
// credential store on creation; all other fields except the email
// confirmation pair are immutable after creation.
type User struct {
	ID               int64
	FirstName        string
	Surname          string
	Email            string
	PasswordHash     string
	RegisteredAt     time.Time
	EmailConfirmed   bool
	EmailConfirmedAt *time.Time
}

// NewUser creates a validated User ready for insertion. The email is
// normalized to lowercase so the store's uniqueness constraint and
// login lookups agree on case.
func NewUser(firstName, surname, email, passwordHash string) (*User, error) {
	if firstName == "" || surname == "" {
		return nil, oops.Code("USER_INVALID_NAME").Errorf("first name and surname cannot be empty")
	}
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &User{
		FirstName:    firstName,
		Surname:      surname,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		RegisteredAt: time.Now(),
	}, nil
}

// ConfirmEmail marks the email as confirmed at the given time.
// Confirming an already-confirmed user is a no-op so repeated visits
// to a confirmation link stay idempotent.
func (u *User) ConfirmEmail(at time.Time) {
	if u.EmailConfirmed {
		return
	}
	u.EmailConfirmed = true
	u.EmailConfirmedAt = &at
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID. Returns
	// ErrDuplicateEmail if the email is already registered; the
	// check is atomic with the insert.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// MarkEmailConfirmed records email confirmation for a user.
	MarkEmailConfirmed(ctx context.Context, id int64, confirmedAt time.Time) error

	// UpdatePassword updates only the password hash for a user.
	// Used when a stored hash is upgraded to current parameters.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
