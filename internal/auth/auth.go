// Package auth decides whether a request carries a provisioned token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/internal/httputil"
)

// Header is the request header holding the raw credential.
const Header = "Authorization"

// UnauthorizedMessage is the body of every 401 response.
const UnauthorizedMessage = "Invalid or missing token."

// ErrUnauthorized means the credential is missing or not provisioned.
var ErrUnauthorized = errors.New("invalid or missing token")

// TokenChecker looks up a credential by exact match.
type TokenChecker interface {
	HasToken(ctx context.Context, token string) (bool, error)
}

// Authorizer answers Allowed (nil) or Denied (ErrUnauthorized) for a credential.
type Authorizer struct {
	tokens TokenChecker
}

// NewAuthorizer creates an Authorizer backed by tokens.
func NewAuthorizer(tokens TokenChecker) *Authorizer {
	return &Authorizer{tokens: tokens}
}

// Credential returns the Authorization header verbatim. The value is
// compared as-is; no scheme prefix is stripped.
func Credential(r *http.Request) string {
	return r.Header.Get(Header)
}

// Authorize returns nil when credential matches a stored token. Any other
// outcome of the lookup is ErrUnauthorized, except a store failure, which is
// returned wrapped so callers can report it as a server error.
func (a *Authorizer) Authorize(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrUnauthorized
	}
	ok, err := a.tokens.HasToken(ctx, credential)
	if err != nil {
		return fmt.Errorf("checking token: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Middleware rejects requests whose credential is not provisioned before the
// wrapped handler runs.
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := a.Authorize(r.Context(), Credential(r))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, ErrUnauthorized):
			log.Ctx(r.Context()).Debug().Msg("request denied: invalid or missing token")
			httputil.RespondError(w, http.StatusUnauthorized, UnauthorizedMessage)
		default:
			log.Ctx(r.Context()).Error().Err(err).Msg("failed to validate token")
			httputil.RespondError(w, http.StatusInternalServerError, "Error validating token.")
		}
	})
}
