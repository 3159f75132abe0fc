package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/account"
	"manuscript-backend/internal/audits"
	googleauth "manuscript-backend/internal/auth"
	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/shared/config"
	"manuscript-backend/internal/shared/metrics"
	"manuscript-backend/internal/shared/server/middleware"
	"manuscript-backend/internal/shared/server/respond"
	"manuscript-backend/internal/users"
)

// Rate limit groups.
const (
	groupAuditStart = "AUDIT_START"
	groupUpload     = "UPLOAD"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config              config.Config
	AccountHandler      *account.Handler
	AuditHandler        *audits.Handler
	ManuscriptHandler   *manuscripts.Handler
	GamificationHandler *gamification.Handler
	UserHandler         *users.Handler
	GoogleAuth          *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				groupAuditStart: {Limit: 5, Window: time.Minute},
				groupUpload:     {Limit: 20, Window: time.Minute},
			},
			GroupFor: rateLimitGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.ManuscriptHandler != nil {
		deps.ManuscriptHandler.RegisterRoutes(api)
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.RegisterRoutes(api)
	}
	if deps.GamificationHandler != nil {
		deps.GamificationHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/manuscripts/:id/audit"):
		return groupAuditStart
	case strings.HasSuffix(path, "/manuscripts"), strings.HasSuffix(path, "/manuscripts/from-s3"):
		return groupUpload
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
