// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glyphlock/glyphlock/internal/platform/ctxutil"
	"github.com/glyphlock/glyphlock/internal/platform/sec"
	"github.com/glyphlock/glyphlock/internal/users/auth"
)

/*
TestHandler_Unlock covers the administrative unlock route end to end: the
role gate, the actor resolution, and the ledger reset.
*/
func TestHandler_Unlock(t *testing.T) {
	service, _, attempts := newServiceWithUser(t)
	router := auth.NewHandler(service).Routes()

	unlockRequest := func(claims *sec.AuthClaims) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/admin/unlock", strings.NewReader(`{"username":"aoi"}`))
		if claims != nil {
			request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	t.Run("unauthenticated_is_rejected", func(t *testing.T) {
		attempts.counts["aoi"] = auth.MaxLoginAttempts

		recorder := unlockRequest(nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, auth.MaxLoginAttempts, attempts.counts["aoi"])
	})

	t.Run("member_is_forbidden", func(t *testing.T) {
		attempts.counts["aoi"] = auth.MaxLoginAttempts

		recorder := unlockRequest(&sec.AuthClaims{UserID: "member-1", Role: string(sec.RoleMember)})
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, auth.MaxLoginAttempts, attempts.counts["aoi"])
	})

	t.Run("admin_resets_the_ledger", func(t *testing.T) {
		attempts.counts["aoi"] = auth.MaxLoginAttempts

		recorder := unlockRequest(&sec.AuthClaims{UserID: "admin-1", Role: string(sec.RoleAdmin)})
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, 0, attempts.counts["aoi"])
	})
}
