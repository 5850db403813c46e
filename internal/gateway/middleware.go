package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	"github.com/casebooklabs/casebook/internal/platform/bus"
)

// authenticate verifies the bearer token and installs the resulting claim
// into the request context. The gateway is the only place a token is ever
// verified; downstream services trust the claim on the envelope.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Code:    "UNAUTHENTICATED",
				Message: "Bearer token is required",
			})
			return
		}

		identity, err := claims.Parse(s.secret, token)
		if err != nil || !identity.Valid(time.Now()) {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Code:    "UNAUTHENTICATED",
				Message: "Bearer token is invalid or expired",
			})
			return
		}

		ctx := bus.WithClaims(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
