package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Real-time updates (no auth: the school id scopes the stream)
	s.echo.GET("/ws/schools/:id", s.handleSchoolWebSocket)

	// Authenticated API surface. Every request passes the permission check;
	// the CRUD modules attach their handlers via APIGroup.
	s.api = s.echo.Group("/api", s.requireAuth, s.requirePermission)
	s.api.GET("/me", s.handleMe)
}

// APIGroup returns the authenticated, permission-checked route group for
// the CRUD modules to register their handlers on.
func (s *Server) APIGroup() *echo.Group {
	return s.api
}
