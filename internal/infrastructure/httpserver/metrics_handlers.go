package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsHandler exposes the default Prometheus registry, including the
// verification outcome counters registered by the services package.
func (s *Server) metricsHandler() http.Handler {
	return promhttp.Handler()
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	s.metricsHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
