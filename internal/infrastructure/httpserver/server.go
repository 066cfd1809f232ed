package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the bot's minimal HTTP surface: a health endpoint for the
// deployment platform and Prometheus metrics for operators.
type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	healthCheckers []ports.HealthChecker
}

func NewServer(config *ServerConfig, logger *logrus.Logger, healthCheckers []ports.HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())

	server := &Server{
		echo:           e,
		config:         config,
		logger:         logger,
		healthCheckers: healthCheckers,
	}

	e.GET("/health", server.healthCheck)
	e.GET("/metrics", server.metricsEndpoint)

	return server
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Infof("Starting HTTP server on %s", addr)
	return s.echo.StartServer(server)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
