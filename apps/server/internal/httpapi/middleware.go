package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/auth"
)

const ContextIdentityKey = "identity"

// AuthRequired resolves the bearer token and stores the identity on the context.
func AuthRequired(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		id, err := resolver.Resolve(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextIdentityKey, id)
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	v, _ := c.Get(ContextIdentityKey)
	id, _ := v.(auth.Identity)
	return id
}

// tokenFromRequest reads ?token= first, then the Authorization header. Browsers cannot set
// headers on a websocket upgrade.
func tokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	token, _ := auth.BearerToken(c.GetHeader("Authorization"))
	return token
}

// accessLog writes one line per request.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}
