// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides authentication primitives for Gatehouse.
//
// # Domain Types
//
// Domain types (User, Session, EmailConfirmation) should be created
// using their respective constructors:
//   - NewUser - creates a User with a normalized email and password hash
//   - NewSession - creates a Session with a validated user and expiry
//   - NewEmailConfirmation - creates an EmailConfirmation with a validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service coordinates the flows: registration, login, logout, session
// resolution, and email confirmation. It is created with NewService or
// NewServiceWithLogger, which validate dependencies.
package auth
