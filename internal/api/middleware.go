package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"task-tracker/internal/model"
)

const (
	requestIDHeader = "X-Request-ID"
	userKey         = "user"
	requestIDKey    = "request_id"
)

// requestID tags every request with an id, reusing the caller's if given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"duration", time.Since(start).String(),
			"request_id", c.GetString(requestIDKey),
		}
		if user, ok := c.Get(userKey); ok {
			attrs = append(attrs, "user_id", user.(*model.User).ID)
		}
		slog.Info("http_request", attrs...)
	}
}

// requireUser authenticates the bearer token and stores the user in the
// request context.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		user, err := s.auth.UserFromToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <t>" or the older "Token <t>".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}
