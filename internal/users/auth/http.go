// Copyright (c) 2026 Glyphlock. All rights reserved.

// The handler is a thin mediation layer between the web and the domain
// service, strictly responsible for transport concerns (status codes,
// headers, JSON).
package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/ctxutil"
	"github.com/glyphlock/glyphlock/internal/platform/middleware"
	requestutil "github.com/glyphlock/glyphlock/internal/platform/request"
	"github.com/glyphlock/glyphlock/internal/platform/respond"
	"github.com/glyphlock/glyphlock/internal/platform/sec"
	"github.com/glyphlock/glyphlock/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup       : Enrolls a new account with its graphical credential.
//   - POST /login        : Runs phase 1 only, or the full two-phase protocol.
//   - POST /admin/unlock : Resets a locked account (admin only).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signup)
	router.Post("/login", handler.login)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Post("/admin/unlock", handler.unlock)
	})

	return router
}

// # Request Payloads

type signupRequest struct {
	Username   string                `json:"username"`
	Email      string                `json:"email"`
	Password   string                `json:"password"`
	Pattern    []string              `json:"pattern"`
	Categories []string              `json:"categories"`
	Sets       []pattern.CategorySet `json:"sets"`
}

type loginRequest struct {
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	Pattern       []string `json:"pattern"`
	FirstStepOnly bool     `json:"firstStepOnly"`
}

type unlockRequest struct {
	Username string `json:"username"`
}

/*
Signup handles the creation of a new user account.

POST /api/v1/signup

Description: Validates input, checks for identity conflicts, and persists a
new account together with the graphical credential the client assembled from
the candidate grids.

Request:
  - Body: signupRequest (Username, Email, Password, Pattern, Categories, Sets)

Response:
  - 201: Session payload: userId, username, email, token, and the credential view
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username or Email already exists
*/
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	var input signupRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	enrolled, err := handler.authService.Signup(request.Context(), SignupInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Credential: pattern.Credential{
			Pattern:    input.Pattern,
			Categories: input.Categories,
			Sets:       input.Sets,
		},
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, sessionPayload(enrolled.User, enrolled.Token))
}

/*
Login authenticates a user through the stepwise graphical protocol.

POST /api/v1/login

Description: Without a pattern (firstStepOnly), verifies the password under
the lockout policy and returns the stored categories and image grids so the
client can render phase 2. With a pattern, runs the full protocol and
establishes a session.

Request:
  - Body: loginRequest (Username, Password, Pattern?, FirstStepOnly?)

Response:
  - 200: Credential view (phase 1) or session payload (full protocol)
  - 401: ErrUnauthorized: Invalid credentials or invalid pattern
  - 403: ErrLocked: Maximum login attempts exceeded
  - 404: ErrNotFound: Unknown username
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Phase 1 only: verify the password and hand back the grids for phase 2.
	if input.FirstStepOnly || input.Pattern == nil {
		view, err := handler.authService.VerifyIdentity(request.Context(), input.Username, input.Password)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.OK(writer, view)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Username: input.Username,
		Password: input.Password,
		Pattern:  input.Pattern,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionPayload(session.User, session.Token))
}

/*
Unlock resets a locked account's attempt ledger.

POST /api/v1/admin/unlock

Description: Administrative escape hatch from the Locked state; requires an
admin token.

Request:
  - Body: unlockRequest (Username)

Response:
  - 204: No Content: Ledger reset
  - 404: ErrNotFound: Unknown username
*/
func (handler *Handler) unlock(writer http.ResponseWriter, request *http.Request) {
	// The middleware chain already enforces the admin role, but the acting
	// admin is resolved here too: an unlock is audit-logged with its actor.
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input unlockRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Unlock(request.Context(), input.Username); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctxutil.GetLogger(request.Context()).Info("account_unlocked",
		slog.String("username", input.Username),
		slog.String("admin_id", claims.UserID),
	)

	respond.NoContent(writer)
}

// sessionPayload builds the authenticated response body shared by signup and
// the full login. The credential view is included so the client can render
// the grids without a second round trip; the selected ids stay server-side.
func sessionPayload(user *User, token string) map[string]any {
	view := newCredentialView(user)

	return map[string]any{
		"userId":     user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"token":      token,
		"categories": view.Categories,
		"sets":       view.Sets,
	}
}
