package server

import "github.com/jrsteele09/gmail-connect/identity"

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.StartFlowHandler(identity.FlowSignIn), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthGmail, ChainMiddleware(s.StartFlowHandler(identity.FlowMailbox), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Called server to server by the ingestion service, so no CORS.
	s.RegisterRouteHandler("POST "+RouteIntrospect, ChainMiddleware(s.IntrospectHandler(), s.LoggingMiddleware, s.RecoverMiddleware, s.NoStoreMiddleware))

	// API routes. Preflight is answered by the CORS middleware.
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
}
