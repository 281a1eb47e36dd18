package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ftyszyx/school-manager/internal/config"
	apperrors "github.com/ftyszyx/school-manager/internal/errors"
	"github.com/ftyszyx/school-manager/internal/hub"
)

// permissionChecker is the authorization query surface consumed by the
// routing layer. A deny surfaces to the client as forbidden.
type permissionChecker interface {
	CheckPathPermission(ctx context.Context, userID int32, roleIDs []int32, method, path string) (bool, error)
}

type Server struct {
	echo      *echo.Echo
	api       *echo.Group
	config    *config.Config
	hub       *hub.Hub
	checker   permissionChecker
	db        *pgxpool.Pool
	redis     *goredis.Client
	startTime time.Time
}

func NewServer(cfg *config.Config, h *hub.Hub, checker permissionChecker, db *pgxpool.Pool, redis *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		hub:       h,
		checker:   checker,
		db:        db,
		redis:     redis,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
