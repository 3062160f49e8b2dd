package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/auth"
)

const claimsKey = "claims"

// requestLog writes one line per request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Debug("request", fields...)
		}
	}
}

// observe records request counts and latency by route template so that
// session codes do not explode label cardinality.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic serving request",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	})
}

// requireTeacher verifies the bearer token on teacher routes.
func (s *Server) requireTeacher() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: auth.ErrNotConfigured.Error()})
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.Header("WWW-Authenticate", `Bearer realm="socratic"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "bearer token required"})
			return
		}
		claims, err := s.auth.Verify(token)
		if errors.Is(err, auth.ErrNotConfigured) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="socratic", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}
