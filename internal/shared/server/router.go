package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/admin"
	googleauth "autofill-backend/internal/auth"
	"autofill-backend/internal/chat"
	"autofill-backend/internal/documents"
	sharedauth "autofill-backend/internal/shared/auth"
	"autofill-backend/internal/shared/config"
	"autofill-backend/internal/shared/metrics"
	"autofill-backend/internal/shared/server/middleware"
	"autofill-backend/internal/shared/server/respond"
	"autofill-backend/internal/users"
)

// appName shows up on the index card.
const appName = "AI Autofill Assistant"

// chatRateGroup keys the limiter rule for the model-bound chat routes.
const chatRateGroup = "CHAT"

// RouterDeps carries the wired handlers and the few extras the top-level
// routes need. Bootstrap fills it; tests can hand in lighter pieces.
type RouterDeps struct {
	Documents  *documents.Handler
	Chat       *chat.Handler
	Users      *users.Handler
	Admin      *admin.Handler
	GoogleAuth *googleauth.GoogleService

	// DocRepo and ChatSvc feed the index card's current-document and
	// model-server snippets.
	DocRepo documents.Repo
	ChatSvc *chat.Service

	// MediaDir, when set, is served statically under /media (dev with the
	// local store only).
	MediaDir string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps RouterDeps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/", indexCard(deps))
	r.GET("/healthz", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())
	if deps.MediaDir != "" {
		r.Static("/media", deps.MediaDir)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.Env))
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Users != nil {
		deps.Users.RegisterRoutes(api)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}
	if deps.Chat != nil {
		deps.Chat.RegisterRoutes(api, chatLimiter())
	}

	if deps.Admin != nil {
		adminGroup := r.Group("/admin", admin.RequireKey(cfg.AdminAPIKey))
		deps.Admin.RegisterRoutes(adminGroup)
	}

	return r
}

// chatLimiter guards the routes that reach the model server. The burst is
// sized so interactive use never trips it; only sustained hammering does.
func chatLimiter() gin.HandlerFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: chatRateGroup,
		Rules: map[string]middleware.RateLimitRule{
			chatRateGroup: {Rate: 5, Burst: 60},
		},
	})
}

// indexCard answers GET / with a small status card: app name, the
// caller's current document when an identity header is present, and a
// model-server snapshot. Identity is optional here; the card degrades to
// a null document.
func indexCard(deps RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		card := gin.H{
			"app":  appName,
			"time": time.Now().UTC().Format(time.RFC3339),
		}

		var document any
		if deps.DocRepo != nil {
			if userID := looseIdentity(c); userID != "" {
				if doc, err := deps.DocRepo.GetCurrentByUser(c.Request.Context(), userID); err == nil {
					document = documents.ToResponse(doc)
				}
			}
		}
		card["document"] = document

		if deps.ChatSvc != nil {
			status := deps.ChatSvc.ServerStatus(c.Request.Context())
			card["ollama"] = gin.H{
				"running": status.Running,
				"models":  status.Models,
			}
		}

		respond.OK(c, card)
	}
}

// looseIdentity resolves the caller like the auth middleware does, but
// silently: no identity just means no current document on the card.
func looseIdentity(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if claims, err := sharedauth.VerifyJWT(token); err == nil {
			return claims.Sub
		}
		return ""
	}
	if guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id")); guestID != "" {
		return "guest:" + guestID
	}
	return ""
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
