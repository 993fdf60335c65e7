// Copyright (c) 2026 Glyphlock. All rights reserved.

/*
Package auth implements the graphical password identity layer.

It defines the core domain entity (User, with its embedded graphical
credential) and the two-phase login protocol: password + lockout verification
first, pattern verification second.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
storage or transport dependencies and encapsulate all business rules related
to user identity.
*/
package auth

import (
	"time"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Glyphlock platform.
//
// The identity and its embedded credential are created once at enrollment and
// are immutable afterward; there is no "change credential" operation.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`

	// Credential is the graphical secret. Never serialized whole: transport
	// views expose categories and displayed images only, via CredentialView.
	Credential pattern.Credential `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Transport Views

// SetView is the re-presentation shape of one category set: the label and the
// candidate images shown at enrollment, with the selected subset withheld.
type SetView struct {
	Category string          `json:"category"`
	Images   []pattern.Image `json:"images"`
}

// CredentialView is what phase 1 of the login protocol returns to the client
// so it can re-render the enrollment grids. The selected ids (the pattern
// itself) must be reproduced by the user, never echoed by the server.
type CredentialView struct {
	Categories []string  `json:"categories"`
	Sets       []SetView `json:"sets"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername   = "username"
	FieldEmail      = "email"
	FieldPassword   = "password"
	FieldPattern    = "pattern"
	FieldCategories = "categories"
	FieldSets       = "sets"
	FieldToken      = "token"
	FieldMessage    = "message"
)
