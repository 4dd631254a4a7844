package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brahmamatch/server/internal/auth"
	"github.com/brahmamatch/server/internal/model"
	"github.com/brahmamatch/server/internal/repo"
)

type contextKey string

const identityKey contextKey = "identity"

// Auth validates the bearer token, resolves its subject phone to an identity
// record and attaches the record to the request context. Why a token is
// invalid is never revealed to the client.
func Auth(tokens *auth.TokenService, identities repo.IdentityRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			phone, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ident, err := identities.GetByPhone(r.Context(), phone)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					respondWithError(w, http.StatusNotFound, "user not found")
					return
				}
				respondWithError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, &ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the identity attached to the request context by Auth.
func GetIdentity(ctx context.Context) (*model.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*model.Identity)
	return ident, ok
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
