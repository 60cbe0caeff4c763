package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const subjectKey = "subject"

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		subject, err := auth.GetSubjectFromToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if sub, ok := c.Get(subjectKey); ok {
			args = append(args, "subject", sub)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			l.Warn(c.Request.Context(), "request", args...)
			return
		}
		l.Debug(c.Request.Context(), "request", args...)
	}
}
