package middleware

import (
	"errors"
	"net/http"

	"booktable/pkg/auth"
	apperrors "booktable/pkg/errors"
	httputil "booktable/pkg/http"
	"booktable/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Authenticator wraps route handlers with bearer-token checks. A verified
// principal is stored in the request context for handlers to read with
// auth.FromContext.
type Authenticator struct {
	tokens *auth.TokenManager
	log    *logger.Logger
}

func NewAuthenticator(tokens *auth.TokenManager, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, log: log}
}

func (a *Authenticator) principal(r *http.Request) (auth.Principal, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return auth.Principal{}, err
	}
	return a.tokens.Parse(token)
}

// Authenticate rejects requests without a valid token.
func (a *Authenticator) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		p, err := a.principal(r)
		if err != nil {
			a.reject(w, r, apperrors.Unauthorized(unauthorizedMessage(err)), err)
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)), ps)
	}
}

// OptionalAuth attaches the principal when a valid token is sent and
// proceeds anonymously otherwise.
func (a *Authenticator) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if p, err := a.principal(r); err == nil {
			r = r.WithContext(auth.WithPrincipal(r.Context(), p))
		}
		next(w, r, ps)
	}
}

// RequireRole authenticates the request and then checks the principal's role.
func (a *Authenticator) RequireRole(roles ...string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return a.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			p, _ := auth.FromContext(r.Context())
			if !p.HasRole(roles...) {
				a.reject(w, r, apperrors.Forbidden("Insufficient role for this operation"), nil)
				return
			}
			next(w, r, ps)
		})
	}
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError, cause error) {
	a.log.Warn("Request rejected by auth",
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"code", appErr.Code,
		"error", cause,
	)
	if err := httputil.WriteError(w, appErr); err != nil {
		a.log.Error("failed to write error response", "middleware", "auth", "operation", "WriteError", "error", err)
	}
}

func unauthorizedMessage(err error) string {
	if errors.Is(err, auth.ErrMissingToken) {
		return "Missing bearer token"
	}
	return "Invalid or expired token"
}
