package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitegate/internal/constants"
)

// setupRoutes configures all routes. Everything that is not an auth, health or
// metrics route falls through to the gate and then the static responder.
func (s *Server) setupRoutes() {
	// Health check endpoint (no auth required)
	s.engine.GET(constants.HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "sitegate",
		})
	})

	s.engine.GET(constants.LoginPath, s.gate.Login)
	s.engine.GET(constants.CallbackPath, s.gate.Callback)
	s.engine.GET(constants.LogoutPath, s.gate.Logout)
	s.engine.POST(constants.LogoutPath, s.gate.Logout)

	if s.config.Metrics.Enabled {
		path := s.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.engine.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	s.engine.NoRoute(s.gate.Require(), s.static.Serve)
}
