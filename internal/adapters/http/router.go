package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dkeye/Presence/internal/adapters/presence"
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/dkeye/Presence/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// LANOnlyMiddleware refuses requests from outside the allowed ranges.
// The hub re-checks on admission; this keeps plain HTTP routes covered too.
func LANOnlyMiddleware(gate *app.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.Allow(c.Request.RemoteAddr) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "lan access only"})
			return
		}
		c.Next()
	}
}

// TokenAuthMiddleware resolves a bearer or query token into the request user.
func TokenAuthMiddleware(authn core.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		user, err := authn.Authenticate(c.Request.Context(), core.Credentials{Token: token})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func requireAdmin(c *gin.Context) {
	user, ok := c.MustGet("user").(*domain.User)
	if !ok || user.Role != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub, ctl *presence.Controller, gate *app.AccessGate, authn core.Authenticator, audit *storage.AuditLog) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(LANOnlyMiddleware(gate))

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PresenceSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/presence", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws presence endpoint hit")
		ctl.HandlePresence(ctx, c)
	})

	api.GET("/presence", TokenAuthMiddleware(authn), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": hub.Snapshot()})
	})

	if audit != nil {
		api.GET("/presence/events", TokenAuthMiddleware(authn), requireAdmin, func(c *gin.Context) {
			limit := 100
			if raw := c.Query("limit"); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
					limit = n
				}
			}
			recs, err := audit.Recent(limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "audit read failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"events": recs})
		})
	}

	return r
}
