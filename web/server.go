// ABOUTME: HTTP API server for screenshot uploads and supervisor review
// ABOUTME: Echo routes with header-based identity, role gating and zap request logging
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/pipeline"
	"github.com/harperreed/canvass/templates"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server serves the JSON API.
type Server struct {
	echo       *echo.Echo
	store      *db.Store
	uploader   *pipeline.Uploader
	supervisor *pipeline.Supervisor
	scorer     templates.Scorer
	logger     *zap.Logger
	maxUpload  int64
}

// Config holds the collaborators of a Server.
type Config struct {
	Store      *db.Store
	Uploader   *pipeline.Uploader
	Supervisor *pipeline.Supervisor
	Scorer     templates.Scorer
	Logger     *zap.Logger
	// MaxUploadBytes bounds the screenshot size. Zero takes the pipeline default.
	MaxUploadBytes int64
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = pipeline.DefaultMaxUploadBytes
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		store:      cfg.Store,
		uploader:   cfg.Uploader,
		supervisor: cfg.Supervisor,
		scorer:     cfg.Scorer,
		logger:     cfg.Logger,
		maxUpload:  cfg.MaxUploadBytes,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(middleware.RequestID())

	e.GET("/health", s.handleHealth)

	api := e.Group("/api", identify)
	staff := requireRole(RoleStaff)
	supervisor := requireRole(RoleSupervisor)

	api.POST("/messages/upload", s.handleUpload, staff, middleware.BodyLimit(bodyLimit(cfg.MaxUploadBytes)))
	api.GET("/messages", s.handleListMessages)
	api.GET("/messages/:id", s.handleGetMessage)
	api.GET("/messages/:id/screenshot", s.handleScreenshot)
	api.DELETE("/messages/:id", s.handleDeleteMessage, staff)
	api.GET("/stages/suggest", s.handleSuggestStage, staff)
	api.POST("/templates/validate", s.handleValidateTemplate)

	api.GET("/quality-checks", s.handlePendingReviews, supervisor)
	api.POST("/quality-checks/approve-all", s.handleApproveAll, supervisor)
	api.POST("/quality-checks/:id/review", s.handleReview, supervisor)
	api.PATCH("/cycles/:id/status", s.handleCycleStatus, supervisor)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("address", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Status >= http.StatusInternalServerError {
				s.logger.Error("request", fields...)
			} else {
				s.logger.Info("request", fields...)
			}
			return nil
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	}
	if err := s.store.DB().PingContext(c.Request().Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}
	return c.JSON(status, body)
}

// bodyLimit leaves room for the multipart envelope around the screenshot.
func bodyLimit(maxUpload int64) string {
	const envelope = 1 << 20
	return formatBytes(maxUpload + envelope)
}
