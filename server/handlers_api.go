package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type meUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// meConnection is the display view of a GmailConnection. Tokens never leave the server.
type meConnection struct {
	Email           string     `json:"email"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	WatchExpiration *time.Time `json:"watch_expiration,omitempty"`
	Watching        bool       `json:"watching"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type meResponse struct {
	User        meUser         `json:"user"`
	Connections []meConnection `json:"connections"`
}

// MeHandler returns the signed-in user and their connected mailboxes.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthorized", "sign in required", http.StatusUnauthorized)
			return
		}

		conns, err := s.services.Connections.ListByUser(r.Context(), session.User.ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", session.User.ID).Msg("failed to list connections")
			writeJSONError(w, errorServer, "failed to list connections", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		resp := meResponse{
			User:        meUser{ID: session.User.ID, Email: session.User.Email},
			Connections: make([]meConnection, 0, len(conns)),
		}
		for _, c := range conns {
			resp.Connections = append(resp.Connections, meConnection{
				Email:           c.Email,
				TokenExpiresAt:  c.ProviderTokenExpiresAt,
				WatchExpiration: c.WatchExpiration,
				Watching:        c.WatchExpiration != nil && c.WatchExpiration.After(now),
				UpdatedAt:       c.UpdatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.services.Health.PingContext(ctx); err != nil {
				log.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
