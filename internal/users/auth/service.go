// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/apperr"
	"github.com/glyphlock/glyphlock/internal/platform/ctxutil"
	"github.com/glyphlock/glyphlock/internal/platform/sec"
	"github.com/glyphlock/glyphlock/internal/platform/validate"
	"github.com/glyphlock/glyphlock/pkg/slice"
	"github.com/glyphlock/glyphlock/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, email, role string, timeToLive time.Duration) (string, error)
}

// Service implements the enrollment and two-phase login use cases.
type Service struct {
	userRepository    UserRepository
	attemptRepository AttemptRepository
	lockoutPolicy     LockoutPolicy
	tokenProvider     TokenProvider
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	attemptRepo AttemptRepository,
	lockout LockoutPolicy,
	tokenProv TokenProvider,
) *Service {
	return &Service{
		userRepository:    userRepo,
		attemptRepository: attemptRepo,
		lockoutPolicy:     lockout,
		tokenProvider:     tokenProv,
	}
}

// # Enrollment Flow

// SignupInput holds the data required to enroll a new member, including the
// client-assembled graphical credential.
type SignupInput struct {
	Username   string
	Email      string
	Password   string
	Credential pattern.Credential
}

// EnrolledUser is the result of a successful enrollment: the persisted
// identity plus a signed auth token identical in shape to the login token.
type EnrolledUser struct {
	User  *User
	Token string
}

/*
Signup validates, hashes, and persists a brand new user account together with
its graphical credential and a zeroed attempt ledger entry.

Description: Identity fields are lowercased before any storage access. The
email conflict is checked before the username conflict, so when both collide
the email conflict is reported. The account row and the ledger entry are two
related writes; a ledger failure triggers a compensating delete of the account
row so no half-created account survives.

Parameters:
  - context: context.Context
  - input: SignupInput

Returns:
  - *EnrolledUser: Created entity and signed token
  - err: Validation, Conflict, or storage errors
*/
func (service *Service) Signup(context context.Context, input SignupInput) (*EnrolledUser, error) {

	// Normalize identity fields. Usernames and emails are case-insensitive.
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Validate local constraints before touching storage.
	validator := &validate.Validator{}
	validator.Required(FieldUsername, username).
		MinLen(FieldUsername, username, MinUsernameLength).
		MaxLen(FieldUsername, username, MaxUsernameLength).
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// The credential carries its own bounds and structural invariants.
	if err := pattern.Validate(&input.Credential); err != nil {
		return nil, err
	}

	// Verify email uniqueness first; it is reported preferentially when both
	// identity fields collide. Only a definitive NotFound means the identity
	// is free: a store failure must not read as an available email.
	_, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		return nil, apperr.Conflict("User already exists")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_conflict_check_failed: %w", err)
	}

	// Verify username uniqueness under the same rule.
	_, err = service.userRepository.FindByUsername(context, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_conflict_check_failed: %w", err)
	}

	// Prevent storing plain-text passwords. The cost factor is pinned to the
	// enrollment contract (12 rounds).
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleMember,
		Credential:   input.Credential,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	// Initialize the attempt ledger alongside the identity. If this second
	// write fails, compensate by removing the account row just created.
	if err := service.attemptRepository.Init(context, username); err != nil {
		_ = service.userRepository.Delete(context, user.ID)
		return nil, fmt.Errorf("auth_service_ledger_init_failed: %w", err)
	}

	// Issue the enrollment token, same shape and lifetime as the login token.
	token, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), AuthTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &EnrolledUser{User: user, Token: token}, nil
}

// # Two-Phase Login

// LoginInput defines credentials for a full (phase 1 + phase 2) login attempt.
type LoginInput struct {
	Username string
	Password string
	Pattern  []string
}

// LoginSession represents a successfully authenticated user.
type LoginSession struct {
	Token string
	User  *User
}

/*
VerifyIdentity runs phase 1 of the login protocol.

Description: Looks up the identity, applies the lockout policy BEFORE the
password comparison, then verifies the password hash. A mismatch increments
the attempt ledger atomically at the store; a match resets it to zero. On
success the stored categories and displayed image slices are returned so the
client can re-render the grids. The selected ids themselves are withheld.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - *CredentialView: Categories and displayed sets for re-presentation
  - err: NotFound, Locked, or Unauthorized
*/
func (service *Service) VerifyIdentity(context context.Context, username, password string) (*CredentialView, error) {
	user, err := service.verifyPassword(context, username, password)
	if err != nil {
		return nil, err
	}

	return newCredentialView(user), nil
}

/*
Login runs the complete two-phase protocol and issues an auth token.

Description: Phase 1 (password + lockout) followed by phase 2: the submitted
pattern must reproduce the stored one by set equality. A pattern mismatch does
NOT touch the attempt ledger (only password failures count toward lockout) and
discards the session; the client must restart from phase 1.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Signed 24h token and the authenticated user
  - err: Unauthorized (wrong password or wrong pattern), NotFound, or Locked
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	user, err := service.verifyPassword(context, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	// Phase 2: the client must reproduce the stored selection.
	if !user.Credential.Matches(input.Pattern) {
		return nil, apperr.Unauthorized("Invalid pattern")
	}

	token, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), AuthTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &LoginSession{Token: token, User: user}, nil
}

// verifyPassword is the shared phase-1 core: lookup, lockout precheck,
// constant-time hash comparison, and ledger bookkeeping.
func (service *Service) verifyPassword(context context.Context, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	// The store answers NotFound only for a genuinely absent row; outages
	// propagate as 500s instead of masquerading as an unknown user.
	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	// Lockout check precedes the password comparison: a locked account gives
	// no oracle about password correctness.
	failureCount, err := service.attemptRepository.Get(context, username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_ledger_read_failed: %w", err)
	}
	if service.lockoutPolicy.IsLocked(failureCount) {
		return nil, apperr.Locked("Maximum login attempts exceeded")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		// Atomic store-side increment; two concurrent failures never collapse
		// into one. The attempt is recorded best-effort, but a degraded
		// ledger weakens the lockout, so a failed write is always logged.
		if _, ledgerErr := service.attemptRepository.Increment(context, username); ledgerErr != nil {
			ctxutil.GetLogger(context).Error("attempt_ledger_increment_failed",
				slog.String("username", username),
				slog.Any("error", ledgerErr),
			)
		}
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	// Reset login attempts on successful password verification. A reset
	// failure does not fail the login, but it leaves a stale count behind.
	if ledgerErr := service.attemptRepository.Reset(context, username); ledgerErr != nil {
		ctxutil.GetLogger(context).Error("attempt_ledger_reset_failed",
			slog.String("username", username),
			slog.Any("error", ledgerErr),
		)
	}

	return user, nil
}

// # Administrative Unlock

/*
Unlock resets a locked account's attempt ledger to zero.

Description: The lockout state machine has no outgoing transition of its own;
counters never time-decay, so this administrative reset is the only path out
of Locked.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - err: NotFound or storage failures
*/
func (service *Service) Unlock(context context.Context, username string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	if _, err := service.userRepository.FindByUsername(context, username); err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	if err := service.attemptRepository.Reset(context, username); err != nil {
		return fmt.Errorf("auth_service_unlock_failed: %w", err)
	}

	return nil
}

// newCredentialView maps a stored credential to its re-presentation shape,
// withholding the selected ids.
func newCredentialView(user *User) *CredentialView {
	return &CredentialView{
		Categories: user.Credential.Categories,
		Sets: slice.Map(user.Credential.Sets, func(set pattern.CategorySet) SetView {
			return SetView{Category: set.Category, Images: set.Images}
		}),
	}
}
