package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booktable/pkg/auth"
	"booktable/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() (*Authenticator, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret")
	return NewAuthenticator(tokens, logger.Discard()), tokens
}

func bearer(t *testing.T, tokens *auth.TokenManager, p auth.Principal) string {
	t.Helper()
	token, err := tokens.Issue(p, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func principalEcho(got *auth.Principal, seen *bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		*seen = true
		if p, ok := auth.FromContext(r.Context()); ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthenticate(t *testing.T) {
	a, tokens := newTestAuthenticator()
	user := auth.Principal{UserID: "u1", Role: auth.RoleUser}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + "eyJhbGciOiJIUzI1NiJ9.e30.invalid", http.StatusUnauthorized},
		{"valid", bearer(t, tokens, user), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth.Principal
			var seen bool
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			a.Authenticate(principalEcho(&got, &seen))(w, req, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, seen)
			if seen {
				assert.Equal(t, "u1", got.UserID)
			}
		})
	}
}

func TestOptionalAuth_ProceedsWithoutToken(t *testing.T) {
	a, _ := newTestAuthenticator()
	var got auth.Principal
	var seen bool

	w := httptest.NewRecorder()
	a.OptionalAuth(principalEcho(&got, &seen))(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.True(t, seen)
	assert.Empty(t, got.UserID)
}

func TestRequireRole(t *testing.T) {
	a, tokens := newTestAuthenticator()
	guard := a.RequireRole(auth.RoleAdmin)

	var got auth.Principal
	var seen bool
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, auth.Principal{UserID: "m1", Role: auth.RoleManager}))
	w := httptest.NewRecorder()
	guard(principalEcho(&got, &seen))(w, req, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, seen)

	req = httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, auth.Principal{UserID: "a1", Role: auth.RoleAdmin}))
	w = httptest.NewRecorder()
	guard(principalEcho(&got, &seen))(w, req, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", got.UserID)
}
