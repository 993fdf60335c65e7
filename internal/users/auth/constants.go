// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// MaxLoginAttempts is the number of failed password verifications after
	// which an account transitions to the Locked state.
	MaxLoginAttempts = 5

	// AuthTokenTTL is the duration a signed auth token remains valid.
	// The same 24-hour window is issued at enrollment and at login.
	AuthTokenTTL = 24 * time.Hour

	// MinUsernameLength is the minimum character count for a username.
	MinUsernameLength = 3

	// MaxUsernameLength caps usernames; the value also bounds the redis
	// ledger key derived from the username.
	MaxUsernameLength = 32

	// MinPasswordLength is the minimum character count for a typed password.
	// The graphical pattern supplements the password, it does not replace it.
	MinPasswordLength = 8
)
