package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/rs/zerolog/log"
)

type sessionContextKey struct{}

// RequireSession resolves the caller's session from a read-only cookie
// context and rejects the request when there is none.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, err := s.services.Identity.GetSession(r.Context(), cookiestore.NewReadOnly(r))
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to resolve session")
				writeJSONError(w, errorServer, "failed to resolve session", http.StatusInternalServerError)
				return
			}
			if session == nil {
				writeJSONError(w, "unauthorized", "sign in required", http.StatusUnauthorized)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, session)))
		}
	}
}

// SessionFromContext returns the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*sessions.Session)
	return session, ok && session != nil
}
