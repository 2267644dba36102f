package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/chat"
	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/documents"
	"marketsauce-agent/internal/research"
	"marketsauce-agent/internal/services/health"
	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/server/middleware"
	"marketsauce-agent/internal/shared/server/respond"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// rateGroupExempt has no rule, so the limiter lets it through.
const rateGroupExempt = "EXEMPT"

// RouterDeps carries prebuilt handlers for NewRouter.
type RouterDeps struct {
	Config            config.Config
	DiagnosticHandler *diagnostics.Handler
	ChatHandler       *chat.Handler
	DocumentHandler   *documents.Handler
	ResearchHandler   *research.Handler
	Health            *health.Service
	RateLimiter       *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Config.RateLimitEnabled {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    middleware.DefaultRules(),
			GroupFor: rateGroupFor,
			Limiter:  deps.RateLimiter,
		}))
	}

	r.GET("/", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"message": "MarketSauce Agent API", "version": Version})
	})
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"status": "healthy"})
	})
	if deps.Health != nil {
		r.GET("/health/ready", func(c *gin.Context) {
			rep, ok := deps.Health.Ready(c.Request.Context())
			status := http.StatusOK
			if !ok {
				status = http.StatusServiceUnavailable
			}
			respond.JSON(c, status, rep)
		})
	}
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	if deps.DiagnosticHandler != nil {
		deps.DiagnosticHandler.RegisterRoutes(api.Group("/diagnostic"))
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api.Group("/chat"))
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api.Group("/documents"))
	}
	if deps.ResearchHandler != nil {
		deps.ResearchHandler.RegisterRoutes(api.Group("/research"))
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case path == "/" || strings.HasPrefix(path, "/health") || path == "/metrics":
		return rateGroupExempt
	case strings.HasPrefix(path, "/api/diagnostic/status/"):
		return middleware.RateGroupPolling
	case strings.HasPrefix(path, "/api/chat/"):
		return middleware.RateGroupChat
	default:
		return middleware.RateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
