// Package api serves the liveness page, health and metrics endpoints, and
// read-only moderation lookups. Lookups need a bearer token and are not
// mounted at all without one.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"eclipse-warden/model"
	"eclipse-warden/moderation"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP side of the bot.
type Server struct {
	engine *moderation.Engine
	logger *slog.Logger
	echo   *echo.Echo
}

func NewServer(engine *moderation.Engine, logger *slog.Logger, apiToken string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, logger: logger.With("component", "api")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = http.StatusText(code)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		if code >= 500 {
			s.logger.Warn("HTTP request error", "statusCode", code, "path", c.Path(), "err", err)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/", s.HandleAlive)
	e.GET("/_health", s.HandleHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if apiToken != "" {
		g := e.Group("/api", middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(apiToken)) == 1, nil
			},
			ErrorHandler: func(err error, c echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			},
		}))
		g.GET("/moderation/:userID", s.HandleModerationRecord)
		g.GET("/cases/:id", s.HandleCase)
	} else {
		s.logger.Info("API_TOKEN is not set, moderation lookups are disabled")
	}
	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) HandleAlive(c echo.Context) error {
	return c.String(http.StatusOK, "Bot is alive!")
}

type HealthStatus struct {
	Status      string `json:"status"`
	CaseCounter int64  `json:"caseCounter"`
	TimedActive int    `json:"timedActive"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	st := s.engine.Stats(0)
	active := 0
	for _, n := range st.ActiveTimed {
		active += n
	}
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok", CaseCounter: st.CaseCounter, TimedActive: active})
}

func (s *Server) HandleModerationRecord(c echo.Context) error {
	userID := c.Param("userID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}
	return c.JSON(http.StatusOK, s.engine.Record(userID))
}

func (s *Server) HandleCase(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "case id must be a positive integer")
	}
	cases, err := s.engine.Cases(c.Request().Context(), model.CaseFilter{CaseID: id, Limit: 1})
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	return c.JSON(http.StatusOK, cases[0])
}
