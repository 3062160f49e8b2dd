package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/auth"
	"github.com/abhisek/socratic/internal/session"
)

type problemRequest struct {
	Text       string           `json:"text"`
	Category   session.Category `json:"category"`
	Difficulty int              `json:"difficulty"`
}

type turnRequest struct {
	Response string `json:"response"`
}

type answerRequest struct {
	SelectedIndex *int `json:"selected_index"`
}

type transferRequest struct {
	Success *bool `json:"success"`
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) startSession(c *gin.Context) {
	sess, err := s.svc.StartSession(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewSession(sess))
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.svc.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSession(sess))
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.svc.DeleteSession(c.Request.Context(), c.Param("code")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) submitProblem(c *gin.Context) {
	var req problemRequest
	if !s.bind(c, &req) {
		return
	}
	sess, p, err := s.svc.SubmitProblem(c.Request.Context(), c.Param("code"), session.Draft{
		Text:       req.Text,
		Category:   req.Category,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, problemCreatedView{Problem: viewProblem(p), Session: viewSession(sess)})
}

func (s *Server) completeProblem(c *gin.Context) {
	id, ok := s.problemID(c)
	if !ok {
		return
	}
	sess, err := s.svc.CompleteProblem(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSession(sess))
}

func (s *Server) respond(c *gin.Context) {
	var req turnRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.svc.Respond(c.Request.Context(), c.Param("code"), req.Response)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewTurn(res))
}

func (s *Server) answerQuestion(c *gin.Context) {
	id, ok := s.problemID(c)
	if !ok {
		return
	}
	var req answerRequest
	if !s.bind(c, &req) {
		return
	}
	if req.SelectedIndex == nil {
		s.fail(c, &session.ValidationError{Field: "selected_index", Message: "is required"})
		return
	}
	res, err := s.svc.AnswerMCQuestion(c.Request.Context(), c.Param("code"), id, c.Param("qid"), *req.SelectedIndex)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewAnswer(res))
}

func (s *Server) recordTransfer(c *gin.Context) {
	id, ok := s.problemID(c)
	if !ok {
		return
	}
	var req transferRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Success == nil {
		s.fail(c, &session.ValidationError{Field: "success", Message: "is required"})
		return
	}
	la, err := s.svc.RecordTransferResult(c.Request.Context(), c.Param("code"), id, *req.Success)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewAssessment(la))
}

func (s *Server) login(c *gin.Context) {
	if s.auth == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: auth.ErrNotConfigured.Error()})
		return
	}
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	token, expires, err := s.auth.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.Info("teacher login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusOK, loginView{Token: token, ExpiresAt: expires})
	}
}

func (s *Server) teacherSummary(c *gin.Context) {
	sum, err := s.svc.TeacherSummary(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// bind decodes the JSON body. It writes a 400 and returns false on
// malformed input.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) problemID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "problem id must be a positive integer", Field: "id"})
		return 0, false
	}
	return id, true
}

// fail maps a service error to its status code. Validation messages are
// safe to show; upstream and internal details stay in the log.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field})
	case session.IsNotFound(err):
		c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case session.IsConflict(err):
		c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case session.IsTimeout(err):
		c.JSON(http.StatusGatewayTimeout, errorBody{Error: "the tutor took too long to answer, please try again"})
	case session.IsExternal(err):
		c.JSON(http.StatusBadGateway, errorBody{Error: "the tutor is unavailable right now, please try again"})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
