// Package web serves the marketing copy form over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	appsession "marketing-export/application/session"
	"marketing-export/domain/content"
	"marketing-export/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

// CookieName is the session cookie
const CookieName = "mx_session"

// Config holds server settings
type Config struct {
	Address       string
	SessionTTL    time.Duration
	MaxSessions   int
	SecureCookies bool
	DefaultTone   content.Tone
	RateLimit     float64 // Generate and upload actions per second per client; <= 0 disables
	RateBurst     int
}

// Server wires the form handlers to a session controller
type Server struct {
	engine     *gin.Engine
	controller *appsession.Controller
	sessions   *SessionStore
	limiter    *RateLimiter
	recorder   *metrics.Recorder
	config     Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates the HTTP server. recorder may be nil to disable /metrics.
func NewServer(cfg Config, controller *appsession.Controller, recorder *metrics.Recorder, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.DefaultTone == "" {
		cfg.DefaultTone = content.ToneProfessional
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"tones": func() []content.Tone { return content.Tones },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		engine:     engine,
		controller: controller,
		recorder:   recorder,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
	s.sessions = NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, recorder.SetActiveSessions)
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst, cfg.MaxSessions)
	}

	engine.Use(s.observe())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/auth/signin", s.handleSignIn)
	s.engine.GET("/oauth2/callback", s.handleCallback)
	s.engine.POST("/generate", s.throttle(), s.handleGenerate)
	s.engine.POST("/edit", s.handleEdit)
	s.engine.POST("/upload", s.throttle(), s.handleUpload)
	s.engine.GET("/download", s.handleDownload)
	s.engine.POST("/logout", s.handleLogout)
	s.engine.GET("/healthz", s.handleHealth)
	if s.recorder != nil {
		s.engine.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the session store
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("address", s.config.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// throttle applies the rate limiter to routes that call external services
func (s *Server) throttle() gin.HandlerFunc {
	if s.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return s.limiter.Limit()
}

// observe logs and records every request
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		s.recorder.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), elapsed)
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", elapsed),
		)
	}
}
