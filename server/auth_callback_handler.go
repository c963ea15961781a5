package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/gmail-connect/credentials"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler completes a sign-in or mailbox connect flow. The
// response is always a plain HTTP redirect, htmx or not: home on success or
// when there is nothing to exchange, the login page with the provider's
// error code when the provider refused the code, and the login page with
// server_error otherwise.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		if code == "" {
			if providerErr := query.Get("error"); providerErr != "" {
				log.Info().Str("error_code", providerErr).Msg("callback without code")
			}
			redirectTo(w, r, RouteHome)
			return
		}

		cookies := cookiestore.NewWritable(w, r)
		if _, err := s.services.Identity.ExchangeCodeForSession(r.Context(), cookies, code, query.Get("state")); err != nil {
			var providerErr *apperrors.ProviderExchangeError
			if apperrors.As(err, &providerErr) {
				log.Warn().Str("error_code", providerErr.Code).Msg("identity provider rejected authorization code")
				redirectTo(w, r, loginErrorPath(providerErr.Code))
				return
			}
			log.Error().Err(err).Msg("authorization code exchange failed")
			redirectTo(w, r, loginErrorPath(errorServer))
			return
		}

		// Read the session back rather than trusting the exchange result.
		session, err := s.services.Identity.GetSession(r.Context(), cookies)
		if err != nil {
			log.Error().Err(err).Msg("failed to read session after exchange")
		}

		s.completeConnect(r.Context(), session)
		redirectTo(w, r, RouteHome)
	}
}

// completeConnect stores delegated credentials and schedules the watch
// notification. Failures here are logged and never change the response.
func (s *Server) completeConnect(ctx context.Context, session *sessions.Session) {
	result, err := s.services.Persister.Persist(ctx, session)
	if err != nil {
		event := log.Error().Err(err)
		if session != nil {
			event = event.Str("user_id", session.User.ID).Str("email", session.User.Email)
		}
		event.Msg("failed to store mailbox credential")
		return
	}
	if result.Outcome != credentials.OutcomeStored {
		log.Debug().Stringer("outcome", result.Outcome).Msg("no mailbox credential to store")
		return
	}

	s.services.Notifier.Notify(session.User.Email, session.AccessToken)
}
