// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

// # Lockout State Machine

// LockoutState is the throttling state derived from an account's failure count.
type LockoutState int

const (
	// StateActive means the account accepts login attempts (0..4 failures).
	StateActive LockoutState = iota

	// StateLocked means the account rejects all attempts (>= threshold).
	// The protocol itself defines no outgoing transition from Locked; the
	// only exit is the administrative reset exposed by [Service.Unlock].
	StateLocked
)

// LockoutPolicy governs failed-attempt counting and access denial.
//
// Transitions: Active --password fail--> Active(n+1), reaching the threshold
// --> Locked; Active --password success--> Active(0). Counters never decay on
// their own.
type LockoutPolicy struct {
	// Threshold is the failure count at which the account locks.
	Threshold int
}

// NewLockoutPolicy returns the production policy with the standard threshold.
func NewLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: MaxLoginAttempts}
}

// State maps a failure count to its lockout state.
func (policy LockoutPolicy) State(failureCount int) LockoutState {
	if failureCount >= policy.Threshold {
		return StateLocked
	}
	return StateActive
}

// IsLocked reports whether an account with the given failure count is denied
// access. The check runs before any password comparison.
func (policy LockoutPolicy) IsLocked(failureCount int) bool {
	return policy.State(failureCount) == StateLocked
}
