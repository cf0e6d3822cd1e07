// Package api registers the REST and websocket routes and their middleware.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studyhubapp/studyhub/internal/chat"
	"github.com/studyhubapp/studyhub/internal/config"
	"github.com/studyhubapp/studyhub/internal/groups"
	"github.com/studyhubapp/studyhub/internal/http/api/handlers"
	"github.com/studyhubapp/studyhub/internal/ratelimit"
	"github.com/studyhubapp/studyhub/internal/records"
	"github.com/studyhubapp/studyhub/internal/security"
	"gorm.io/gorm"
)

// authRateLimit caps unauthenticated auth attempts per client IP per second.
const authRateLimit = 10

// Deps carries everything the routes need.
type Deps struct {
	DB      *gorm.DB
	JWT     config.JWTConfig
	Groups  *groups.Service
	Records *records.Service
	Hubs    *chat.Registry
	Limiter ratelimit.Limiter
}

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	apiGroup := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	public := apiGroup.Group("")
	if deps.Limiter != nil {
		public.Use(rateLimitMiddleware(deps.Limiter))
	}
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)

	authed := apiGroup.Group("")
	authed.Use(authMiddleware(deps.DB, deps.JWT))

	groupHandler := handlers.NewGroupHandler(deps.Groups, deps.Hubs)
	authed.GET("/groups", groupHandler.List)
	authed.POST("/groups", groupHandler.Create)
	authed.GET("/groups/:id", groupHandler.Get)
	authed.POST("/groups/join", groupHandler.Join)
	authed.POST("/groups/:id/leave", groupHandler.Leave)

	noteHandler := handlers.NewNoteHandler(deps.Records)
	authed.GET("/groups/:id/notes", noteHandler.List)
	authed.POST("/groups/:id/notes", noteHandler.Create)

	meetupHandler := handlers.NewMeetupHandler(deps.Records)
	authed.GET("/groups/:id/meetups", meetupHandler.List)
	authed.POST("/groups/:id/meetups", meetupHandler.Create)

	chatHandler := handlers.NewChatHandler(deps.Records, deps.Groups, deps.Hubs)
	authed.GET("/groups/:id/chat", chatHandler.List)
	authed.POST("/groups/:id/chat", chatHandler.Post)
	authed.GET("/groups/:id/chat/ws", chatHandler.Subscribe)
}

// authMiddleware validates access tokens and loads the user into the
// request context. Websocket clients cannot set headers from a browser, so a
// `token` query parameter is accepted as a fallback.
func authMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			raw = strings.TrimPrefix(authHeader, "Bearer ")
			if raw == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
				return
			}
		} else {
			raw = c.Query("token")
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, raw)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if errFind := handlers.EnsureUserExists(c.Request.Context(), db, claims.UserID); errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(handlers.ContextUserID, claims.UserID)
		c.Next()
	}
}

// rateLimitMiddleware throttles requests per client IP.
func rateLimitMiddleware(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, errAllow := limiter.Allow(c.Request.Context(), c.ClientIP(), authRateLimit, time.Now())
		if errAllow != nil {
			// Limiter failure must not take down auth.
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
