package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/rs/zerolog/log"
)

// IntrospectHandler lets the ingestion service check the bearer it was sent
// with a watch request (RFC 7662). Signed-out tokens report active=false.
func (s *Server) IntrospectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		raw := r.PostFormValue("token")
		if raw == "" {
			writeJSONError(w, "invalid_request", "token parameter is required", http.StatusBadRequest)
			return
		}

		introspection := s.services.Tokens.Introspect(raw)
		if introspection.Active && introspection.Email != nil {
			connected := true
			if _, err := s.services.Connections.GetByEmail(r.Context(), *introspection.Email); err != nil {
				connected = false
				if !apperrors.Is(err, apperrors.ErrNotFound) {
					log.Error().Err(err).Str("email", *introspection.Email).Msg("failed to look up connection")
					writeJSONError(w, errorServer, "failed to look up connection", http.StatusInternalServerError)
					return
				}
			}
			introspection.MailboxConnected = &connected
		}
		writeJSON(w, http.StatusOK, introspection)
	}
}
