// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity, credential included
		  - error: apperr.NotFound when no such account exists; any other
		    error is an infrastructure failure
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string (lowercased)

		Returns:
		  - *User: Hydrated entity, credential included
		  - error: apperr.NotFound when no such account exists; any other
		    error is an infrastructure failure
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string (lowercased)

		Returns:
		  - *User: Hydrated entity, credential included
		  - error: apperr.NotFound when no such account exists; any other
		    error is an infrastructure failure
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account with its credential.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Delete permanently removes an account row.

		Description: Compensating action for the enrollment saga: if the
		attempt ledger cannot be initialized after the account row was
		written, the row is removed so no half-created account survives.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id string) error
}

// # Attempt Ledger Access

// AttemptRepository defines the contract for the per-identity failed-login
// counter driving the lockout policy.
//
// # Concurrency
//
// Increment MUST be atomic at the store: two concurrent failed logins for the
// same identity must never both observe n and both write back n+1. The
// counter is mutated only through Init/Increment/Reset and never expires.
type AttemptRepository interface {

	/*
		Init creates the ledger entry with a zero failure count.

		Parameters:
		  - context: context.Context
		  - username: string (lowercased)

		Returns:
		  - error: Persistence failures
	*/
	Init(context context.Context, username string) error

	/*
		Get returns the current failure count. A missing entry reads as zero.

		Parameters:
		  - context: context.Context
		  - username: string (lowercased)

		Returns:
		  - int: Current failure count
		  - error: Retrieval failures
	*/
	Get(context context.Context, username string) (int, error)

	/*
		Increment atomically adds one to the failure count.

		Parameters:
		  - context: context.Context
		  - username: string (lowercased)

		Returns:
		  - int: The count after the increment
		  - error: Persistence failures
	*/
	Increment(context context.Context, username string) (int, error)

	/*
		Reset sets the failure count back to zero.

		Parameters:
		  - context: context.Context
		  - username: string (lowercased)

		Returns:
		  - error: Persistence failures
	*/
	Reset(context context.Context, username string) error
}
