package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/ftyszyx/school-manager/internal/errors"
	"github.com/ftyszyx/school-manager/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Admin and classroom clients connect from browsers
	},
}

// handleSchoolWebSocket upgrades the connection and streams class status
// updates for one school. The channel is output-only from the server's
// perspective: inbound frames are discarded, the read loop exists purely
// to detect peer disconnection.
func (s *Server) handleSchoolWebSocket(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		// Rejected before any upgrade or registry state is created.
		return apperrors.ValidationError("invalid school id")
	}
	schoolID := int32(id)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	cw := s.hub.Register(schoolID, conn)
	logging.WithSchool(schoolID).Info("New websocket connection")

	// Read pump — blocks until the connection closes or errors.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(schoolID, cw)
	logging.WithSchool(schoolID).Info("Websocket connection closed")

	return nil
}
