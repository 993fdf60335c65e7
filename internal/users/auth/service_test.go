// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/apperr"
	"github.com/glyphlock/glyphlock/internal/platform/ctxutil"
	"github.com/glyphlock/glyphlock/internal/platform/sec"
	"github.com/glyphlock/glyphlock/internal/users/auth"
)

// # Test Doubles

type memoryUserRepository struct {
	users      map[string]*auth.User // keyed by username
	findErr    error                 // simulates a store outage on lookups
	createErr  error
	deleteByID []string
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[string]*auth.User{}}
}

// Lookups honor the repository contract: a missing row answers
// apperr.NotFound, anything else is an infrastructure failure.
func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryUserRepository) Create(_ context.Context, user *auth.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id string) error {
	r.deleteByID = append(r.deleteByID, id)
	for username, u := range r.users {
		if u.ID == id {
			delete(r.users, username)
		}
	}
	return nil
}

type memoryAttemptRepository struct {
	counts       map[string]int
	initErr      error
	incrementErr error
	resetErr     error
}

func newMemoryAttemptRepository() *memoryAttemptRepository {
	return &memoryAttemptRepository{counts: map[string]int{}}
}

func (r *memoryAttemptRepository) Init(_ context.Context, username string) error {
	if r.initErr != nil {
		return r.initErr
	}
	r.counts[username] = 0
	return nil
}

func (r *memoryAttemptRepository) Get(_ context.Context, username string) (int, error) {
	return r.counts[username], nil
}

func (r *memoryAttemptRepository) Increment(_ context.Context, username string) (int, error) {
	if r.incrementErr != nil {
		return 0, r.incrementErr
	}
	r.counts[username]++
	return r.counts[username], nil
}

func (r *memoryAttemptRepository) Reset(_ context.Context, username string) error {
	if r.resetErr != nil {
		return r.resetErr
	}
	r.counts[username] = 0
	return nil
}

type staticTokenProvider struct{}

func (staticTokenProvider) GenerateAccessToken(userID, _, _ string, _ time.Duration) (string, error) {
	return "token-" + userID, nil
}

// # Fixtures

// validCredential builds a well-formed five-category credential whose pattern
// is the union of one selection per category.
func validCredential() pattern.Credential {
	categories := []string{"cats", "cars", "trees", "rivers", "stars"}

	credential := pattern.Credential{Categories: categories}
	for index, category := range categories {
		selected := fmt.Sprintf("img-%d-0", index)
		set := pattern.CategorySet{
			Category:    category,
			SelectedIDs: []string{selected},
		}
		for position := range 16 {
			set.Images = append(set.Images, pattern.Image{
				ID:  fmt.Sprintf("img-%d-%d", index, position),
				URL: fmt.Sprintf("https://images.example/%d/%d", index, position),
			})
		}
		credential.Sets = append(credential.Sets, set)
		credential.Pattern = append(credential.Pattern, selected)
	}
	return credential
}

func newServiceWithUser(t *testing.T) (*auth.Service, *memoryUserRepository, *memoryAttemptRepository) {
	t.Helper()

	users := newMemoryUserRepository()
	attempts := newMemoryAttemptRepository()
	service := auth.NewService(users, attempts, auth.NewLockoutPolicy(), staticTokenProvider{})

	_, err := service.Signup(context.Background(), auth.SignupInput{
		Username:   "Aoi",
		Email:      "aoi@example.com",
		Password:   "correct-horse",
		Credential: validCredential(),
	})
	require.NoError(t, err)

	return service, users, attempts
}

// # Enrollment

func TestService_Signup(t *testing.T) {
	service, users, attempts := newServiceWithUser(t)

	t.Run("normalizes_identity_and_hashes_password", func(t *testing.T) {
		user, ok := users.users["aoi"]
		require.True(t, ok, "username must be stored lowercased")
		assert.Equal(t, "aoi@example.com", user.Email)
		assert.Equal(t, sec.RoleMember, user.Role)
		assert.NotEqual(t, "correct-horse", user.PasswordHash)
		assert.True(t, sec.CheckPasswordHash("correct-horse", user.PasswordHash))
		assert.Equal(t, 0, attempts.counts["aoi"])
	})

	t.Run("duplicate_email_reported_before_username", func(t *testing.T) {
		// Same email AND same username: the email conflict must win.
		_, err := service.Signup(context.Background(), auth.SignupInput{
			Username:   "aoi",
			Email:      "AOI@example.com",
			Password:   "another-pass",
			Credential: validCredential(),
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
		assert.Equal(t, "User already exists", ae.Message)
	})

	t.Run("duplicate_username_conflict", func(t *testing.T) {
		_, err := service.Signup(context.Background(), auth.SignupInput{
			Username:   "AOI",
			Email:      "fresh@example.com",
			Password:   "another-pass",
			Credential: validCredential(),
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
		assert.Equal(t, "Username is already taken", ae.Message)
	})

	t.Run("rejects_overlong_username", func(t *testing.T) {
		_, err := service.Signup(context.Background(), auth.SignupInput{
			Username:   strings.Repeat("x", auth.MaxUsernameLength+1),
			Email:      "long@example.com",
			Password:   "long-enough",
			Credential: validCredential(),
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	})

	t.Run("rejects_malformed_credential", func(t *testing.T) {
		credential := validCredential()
		credential.Pattern = credential.Pattern[:3] // below minimum size

		_, err := service.Signup(context.Background(), auth.SignupInput{
			Username:   "mika",
			Email:      "mika@example.com",
			Password:   "long-enough",
			Credential: credential,
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	})
}

func TestService_Signup_LedgerFailureCompensates(t *testing.T) {
	users := newMemoryUserRepository()
	attempts := newMemoryAttemptRepository()
	attempts.initErr = errors.New("redis down")
	service := auth.NewService(users, attempts, auth.NewLockoutPolicy(), staticTokenProvider{})

	_, err := service.Signup(context.Background(), auth.SignupInput{
		Username:   "rin",
		Email:      "rin@example.com",
		Password:   "correct-horse",
		Credential: validCredential(),
	})
	require.Error(t, err)

	// The account row created before the ledger failure must be rolled back.
	assert.Len(t, users.deleteByID, 1)
	assert.Empty(t, users.users)
}

// # Two-Phase Login

func TestService_Login(t *testing.T) {
	service, users, _ := newServiceWithUser(t)
	stored := users.users["aoi"]

	t.Run("full_protocol_succeeds", func(t *testing.T) {
		session, err := service.Login(context.Background(), auth.LoginInput{
			Username: "Aoi",
			Password: "correct-horse",
			Pattern:  stored.Credential.Pattern,
		})
		require.NoError(t, err)
		assert.Equal(t, "token-"+stored.ID, session.Token)
		assert.Equal(t, "aoi", session.User.Username)
	})

	t.Run("pattern_order_is_irrelevant", func(t *testing.T) {
		shuffled := make([]string, len(stored.Credential.Pattern))
		copy(shuffled, stored.Credential.Pattern)
		shuffled[0], shuffled[len(shuffled)-1] = shuffled[len(shuffled)-1], shuffled[0]

		_, err := service.Login(context.Background(), auth.LoginInput{
			Username: "aoi",
			Password: "correct-horse",
			Pattern:  shuffled,
		})
		assert.NoError(t, err)
	})

	t.Run("wrong_pattern_is_unauthorized", func(t *testing.T) {
		wrong := make([]string, len(stored.Credential.Pattern))
		copy(wrong, stored.Credential.Pattern)
		wrong[2] = "img-2-7"

		_, err := service.Login(context.Background(), auth.LoginInput{
			Username: "aoi",
			Password: "correct-horse",
			Pattern:  wrong,
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
		assert.Equal(t, "Invalid pattern", ae.Message)
	})

	t.Run("unknown_user_is_not_found", func(t *testing.T) {
		_, err := service.Login(context.Background(), auth.LoginInput{
			Username: "ghost",
			Password: "whatever",
			Pattern:  stored.Credential.Pattern,
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
	})
}

func TestService_Login_PatternFailureDoesNotCountTowardLockout(t *testing.T) {
	service, users, attempts := newServiceWithUser(t)
	stored := users.users["aoi"]

	wrong := make([]string, len(stored.Credential.Pattern))
	copy(wrong, stored.Credential.Pattern)
	wrong[0] = "img-0-9"

	for range 10 {
		_, err := service.Login(context.Background(), auth.LoginInput{
			Username: "aoi",
			Password: "correct-horse",
			Pattern:  wrong,
		})
		require.Error(t, err)
	}

	// Only password failures feed the ledger; ten pattern misses leave it at zero.
	assert.Equal(t, 0, attempts.counts["aoi"])
}

func TestService_StoreOutageIsNotAnIdentityAnswer(t *testing.T) {
	service, users, _ := newServiceWithUser(t)
	users.findErr = errors.New("connection refused")

	t.Run("login_does_not_answer_not_found", func(t *testing.T) {
		_, err := service.Login(context.Background(), auth.LoginInput{
			Username: "aoi",
			Password: "correct-horse",
			Pattern:  []string{"a", "b", "c", "d", "e"},
		})
		require.Error(t, err)

		// An infrastructure failure must propagate untyped so the transport
		// layer answers 500, never 404.
		assert.Nil(t, apperr.As(err))
	})

	t.Run("signup_does_not_read_outage_as_free_identity", func(t *testing.T) {
		_, err := service.Signup(context.Background(), auth.SignupInput{
			Username:   "mika",
			Email:      "mika@example.com",
			Password:   "long-enough",
			Credential: validCredential(),
		})
		require.Error(t, err)
		assert.Nil(t, apperr.As(err))
		assert.NotContains(t, users.users, "mika")
	})

	t.Run("unlock_does_not_answer_not_found", func(t *testing.T) {
		err := service.Unlock(context.Background(), "aoi")
		require.Error(t, err)
		assert.Nil(t, apperr.As(err))
	})
}

func TestService_LedgerWriteFailuresAreLogged(t *testing.T) {
	service, _, attempts := newServiceWithUser(t)

	var logOutput bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logOutput, nil))
	loggingCtx := ctxutil.WithLogger(context.Background(), logger)

	t.Run("increment_failure_logged_attempt_still_rejected", func(t *testing.T) {
		attempts.incrementErr = errors.New("redis degraded")
		defer func() { attempts.incrementErr = nil }()

		_, err := service.VerifyIdentity(loggingCtx, "aoi", "wrong-pass")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
		assert.Contains(t, logOutput.String(), "attempt_ledger_increment_failed")
	})

	t.Run("reset_failure_logged_login_still_succeeds", func(t *testing.T) {
		attempts.resetErr = errors.New("redis degraded")
		defer func() { attempts.resetErr = nil }()

		_, err := service.VerifyIdentity(loggingCtx, "aoi", "correct-horse")
		require.NoError(t, err)
		assert.Contains(t, logOutput.String(), "attempt_ledger_reset_failed")
	})
}

func TestService_VerifyIdentity(t *testing.T) {
	service, users, attempts := newServiceWithUser(t)
	stored := users.users["aoi"]

	t.Run("returns_grids_without_selected_ids", func(t *testing.T) {
		view, err := service.VerifyIdentity(context.Background(), "aoi", "correct-horse")
		require.NoError(t, err)

		assert.Equal(t, stored.Credential.Categories, view.Categories)
		require.Len(t, view.Sets, len(stored.Credential.Sets))
		for index, set := range view.Sets {
			assert.Equal(t, stored.Credential.Sets[index].Category, set.Category)
			assert.Len(t, set.Images, 16)
		}
	})

	t.Run("wrong_password_increments_ledger", func(t *testing.T) {
		before := attempts.counts["aoi"]

		_, err := service.VerifyIdentity(context.Background(), "aoi", "wrong-pass")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
		assert.Equal(t, "Invalid credentials", ae.Message)
		assert.Equal(t, before+1, attempts.counts["aoi"])
	})

	t.Run("success_resets_ledger", func(t *testing.T) {
		attempts.counts["aoi"] = auth.MaxLoginAttempts - 1

		_, err := service.VerifyIdentity(context.Background(), "aoi", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, 0, attempts.counts["aoi"])
	})
}

// # Lockout

func TestService_Lockout(t *testing.T) {
	service, _, attempts := newServiceWithUser(t)

	// Five consecutive password failures reach the threshold.
	for attempt := range auth.MaxLoginAttempts {
		_, err := service.VerifyIdentity(context.Background(), "aoi", "wrong-pass")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus, "attempt %d", attempt+1)
	}
	assert.Equal(t, auth.MaxLoginAttempts, attempts.counts["aoi"])

	// The sixth attempt is refused before the password is even compared, so
	// the correct password no longer helps.
	_, err := service.VerifyIdentity(context.Background(), "aoi", "correct-horse")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusForbidden, ae.HTTPStatus)
	assert.Equal(t, "ACCOUNT_LOCKED", ae.Code)

	// And the counter stops growing while locked.
	assert.Equal(t, auth.MaxLoginAttempts, attempts.counts["aoi"])
}

func TestService_Unlock(t *testing.T) {
	service, _, attempts := newServiceWithUser(t)
	attempts.counts["aoi"] = auth.MaxLoginAttempts + 3

	t.Run("resets_the_ledger", func(t *testing.T) {
		require.NoError(t, service.Unlock(context.Background(), "AOI"))
		assert.Equal(t, 0, attempts.counts["aoi"])

		_, err := service.VerifyIdentity(context.Background(), "aoi", "correct-horse")
		assert.NoError(t, err)
	})

	t.Run("unknown_user_is_not_found", func(t *testing.T) {
		err := service.Unlock(context.Background(), "ghost")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
	})
}

func TestLockoutPolicy_State(t *testing.T) {
	policy := auth.NewLockoutPolicy()

	tests := []struct {
		name   string
		count  int
		locked bool
	}{
		{"zero", 0, false},
		{"one_below_threshold", auth.MaxLoginAttempts - 1, false},
		{"at_threshold", auth.MaxLoginAttempts, true},
		{"above_threshold", auth.MaxLoginAttempts + 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.locked, policy.IsLocked(tt.count))
			if tt.locked {
				assert.Equal(t, auth.StateLocked, policy.State(tt.count))
			} else {
				assert.Equal(t, auth.StateActive, policy.State(tt.count))
			}
		})
	}
}
