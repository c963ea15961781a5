package server

import (
	"net/http"

	"github.com/jrsteele09/gmail-connect/identity"
	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/rs/zerolog/log"
)

// StartFlowHandler sends the browser to the identity provider.
func (s *Server) StartFlowHandler(flow identity.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.services.Identity.AuthCodeURL(cookiestore.NewWritable(w, r), flow)
		if err != nil {
			log.Error().Err(err).Str("flow", string(flow)).Msg("failed to start authorization flow")
			redirectWithError(w, r, RouteLogin, errorServer)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Identity.SignOut(r.Context(), cookiestore.NewWritable(w, r)); err != nil {
			log.Error().Err(err).Msg("sign out failed")
		}
		redirectSuccess(w, r, RouteLogin)
	}
}
