package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/metrics"
	"github.com/ledgerly/ledgerly-api/internal/model"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// Gate outcomes, as recorded in logs and metrics.
const (
	OutcomeAuthorized     = "authorized"
	OutcomeMissingToken   = "missing_token"
	OutcomeInvalidToken   = "invalid_token"
	OutcomeExpiredToken   = "expired_token"
	OutcomeUnknownSubject = "unknown_subject"
	OutcomeError          = "error"
)

// TokenVerifier checks an access token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// IdentityResolver maps a token subject to the current user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID int64) (model.Identity, error)
}

// Gate returns middleware that admits a request only when it carries a
// valid Bearer token whose subject is an existing user. The resolved
// identity is stored in the request context.
//
// Every authentication failure produces the same 401 response; the
// distinguishing reason goes to the debug log and the gate metric only.
// A datastore failure while resolving is answered with 500.
func Gate(tokens TokenVerifier, identities IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, OutcomeMissingToken)
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, crypto.ErrTokenExpired) {
					reject(w, r, OutcomeExpiredToken)
				} else {
					reject(w, r, OutcomeInvalidToken)
				}
				return
			}

			identity, err := identities.ResolveIdentity(r.Context(), userID)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					reject(w, r, OutcomeUnknownSubject)
					return
				}
				metrics.AuthGateTotal.WithLabelValues(OutcomeError).Inc()
				hlog.FromRequest(r).Error().Err(err).Int64("user_id", userID).Msg("resolving identity failed")
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			metrics.AuthGateTotal.WithLabelValues(OutcomeAuthorized).Inc()
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func reject(w http.ResponseWriter, r *http.Request, outcome string) {
	metrics.AuthGateTotal.WithLabelValues(outcome).Inc()
	hlog.FromRequest(r).Debug().Str("reason", outcome).Msg("request not authenticated")

	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, "not authenticated")
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
