// Package api exposes the tutoring service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/auth"
	"github.com/abhisek/socratic/internal/metrics"
	"github.com/abhisek/socratic/internal/tutor"
)

// Server is the HTTP transport for a tutor.Service.
type Server struct {
	svc     *tutor.Service
	auth    *auth.Authenticator
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     Config

	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the gin engine and registers every route. auth and m may
// be nil; teacher routes then answer 503 and /metrics is not mounted.
func NewServer(cfg Config, svc *tutor.Service, a *auth.Authenticator, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(cfg.Mode)

	s := &Server{
		svc:     svc,
		auth:    a,
		metrics: m,
		logger:  logger.Named("api"),
		cfg:     cfg,
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestLog(), s.observe())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	sessions := r.Group("/api/sessions")
	{
		sessions.POST("", s.startSession)
		sessions.GET("/:code", s.getSession)
		sessions.DELETE("/:code", s.deleteSession)
		sessions.POST("/:code/problems", s.submitProblem)
		sessions.POST("/:code/problems/:id/complete", s.completeProblem)
		sessions.POST("/:code/turns", s.respond)
		sessions.POST("/:code/problems/:id/questions/:qid/answer", s.answerQuestion)
		sessions.POST("/:code/problems/:id/transfer", s.recordTransfer)
	}

	teacher := r.Group("/api/teacher")
	{
		teacher.POST("/login", s.login)
		teacher.GET("/sessions/:code", s.requireTeacher(), s.teacherSummary)
	}
	return r
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until Shutdown is called. A clean shutdown
// returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
