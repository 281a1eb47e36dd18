package server

import (
	"github.com/labstack/echo/v4"

	apperrors "github.com/ftyszyx/school-manager/internal/errors"
)

// handleMe echoes the authenticated identity. Mostly useful for clients to
// verify a token and for exercising the authorization path end to end.
func (s *Server) handleMe(c echo.Context) error {
	claims, err := requestClaims(c)
	if err != nil {
		return apperrors.UnauthorizedError("unauthorized")
	}
	return c.JSON(200, claims)
}
