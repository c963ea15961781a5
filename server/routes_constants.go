package server

import "github.com/jrsteele09/gmail-connect/internal/config"

// Route path constants
const (
	RouteHome  = "/"
	RouteLogin = "/login"

	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthGmail    = "/auth/gmail"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthCallback = config.CallbackPath

	// OAuth2 Routes
	RouteIntrospect = "/oauth2/introspect"

	// API Routes
	RouteAPIMe = "/api/me"

	RouteHealthz = "/healthz"
)
