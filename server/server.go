package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/gmail-connect/connections"
	"github.com/jrsteele09/gmail-connect/credentials"
	"github.com/jrsteele09/gmail-connect/identity"
	"github.com/jrsteele09/gmail-connect/internal/config"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/jrsteele09/gmail-connect/token"
	"github.com/rs/zerolog/log"
)

// CredentialPersister stores the delegated tokens carried by a session.
type CredentialPersister interface {
	Persist(ctx context.Context, session *sessions.Session) (credentials.Result, error)
}

// WatchNotifier schedules a best-effort watch notification. It never blocks
// on the ingestion service.
type WatchNotifier interface {
	Notify(email, bearer string) bool
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// TokenIntrospector answers whether an application access token is still live.
type TokenIntrospector interface {
	Introspect(raw string) *token.Introspection
}

// Services are the collaborators the HTTP layer is wired to.
type Services struct {
	Identity    identity.Provider
	Connections connections.Repo
	Persister   CredentialPersister
	Notifier    WatchNotifier
	Tokens      TokenIntrospector
	Health      Pinger // optional
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Identity == nil || services.Connections == nil || services.Persister == nil || services.Notifier == nil || services.Tokens == nil {
		return nil, errors.New("[Server New] identity, connections, persister, notifier and tokens are required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		services: services,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
