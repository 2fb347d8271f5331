package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/constants"
	"github.com/sitegate/internal/gate"
	"github.com/sitegate/internal/metrics"
	"github.com/sitegate/internal/session"
	"github.com/sitegate/internal/static"
)

// Server wraps the HTTP server
type Server struct {
	config  *config.Config
	engine  *gin.Engine
	gate    *gate.Gate
	static  *static.Responder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer creates a new HTTP server serving cfg.StaticRoot behind the gate
func NewServer(cfg *config.Config, store session.Store, provider gate.Provider, logger *slog.Logger) (*Server, error) {
	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	whitelist, err := cfg.CompileWhitelist()
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	responder, err := static.New(cfg.StaticRoot, logger, m)
	if err != nil {
		return nil, err
	}

	g, err := gate.New(gate.Options{
		Provider:        provider,
		Store:           store,
		GitHub:          cfg.Auth.GitHub,
		Whitelist:       whitelist,
		SessionTTL:      cfg.Session.TTL,
		HandshakeSecret: cfg.Session.Secret,
		SecureCookie:    cfg.Auth.SecureCookie,
		CookieDomain:    cfg.Auth.CookieDomain,
		Logger:          logger,
		Metrics:         m,
	})
	if err != nil {
		return nil, err
	}

	engine := gin.New()

	// Middleware - order matters
	engine.Use(gin.Recovery())
	engine.Use(securityHeadersMiddleware())
	engine.Use(sslMiddleware(cfg.EnforceSSL))
	engine.Use(cacheControlMiddleware())
	engine.Use(loggerMiddleware(logger))

	server := &Server{
		config:  cfg,
		engine:  engine,
		gate:    g,
		static:  responder,
		metrics: m,
		logger:  logger,
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.ServerAddress
	if addr == "" {
		addr = ":4000"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Configure server with timeouts
	server := &http.Server{
		Handler:        s.engine,
		ReadTimeout:    constants.ServerReadTimeout,
		WriteTimeout:   constants.ServerWriteTimeout,
		IdleTimeout:    constants.ServerIdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sitegate listening", "address", ln.Addr().String(), "static_root", s.static.Root())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		// Site pages may frame each other, nothing else may frame them
		c.Writer.Header().Set("X-Frame-Options", "SAMEORIGIN")
		// Referrer policy
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS (only if using HTTPS)
		if isHTTPS(c.Request) {
			c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// sslMiddleware redirects plain http requests to https when enforce is set.
// The health check stays reachable over http for probes.
func sslMiddleware(enforce bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enforce || isHTTPS(c.Request) || c.Request.URL.Path == constants.HealthPath {
			c.Next()
			return
		}

		target := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		c.Redirect(http.StatusMovedPermanently, target)
		c.Abort()
	}
}

// isHTTPS honours X-Forwarded-Proto from a TLS terminating proxy
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// cacheControlMiddleware keeps auth responses and gated pages out of shared caches
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/auth/") {
			// Auth endpoints - no caching
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		} else {
			// Pages are only for signed in users, proxies must not hand them out
			c.Writer.Header().Set("Cache-Control", "private, no-cache")
		}

		c.Next()
	}
}

// loggerMiddleware logs HTTP requests
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}
