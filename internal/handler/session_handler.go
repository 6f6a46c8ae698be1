package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SijoOrganization/sijo-qcm-front/internal/middleware"
	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
	"github.com/SijoOrganization/sijo-qcm-front/internal/validator"
)

// SessionHandler exposes the candidate quiz session endpoints.
type SessionHandler struct {
	sessions *service.QuizSessionService
}

func NewSessionHandler(sessions *service.QuizSessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartQuiz godoc
// POST /api/candidate/start-quiz
// Opens a new session for the authenticated candidate.
func (h *SessionHandler) StartQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.CandidateID != claims.CandidateID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	sess, err := h.sessions.Start(claims.CandidateID, req)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusCreated, sess)
}

// GetInfo godoc
// GET /api/candidate/session/:id/info
func (h *SessionHandler) GetInfo(c *gin.Context) {
	claims := middleware.GetClaims(c)
	info, err := h.sessions.Info(claims.CandidateID, c.Param("id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// GetStatus godoc
// GET /api/candidate/session/:id/status
func (h *SessionHandler) GetStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	st, err := h.sessions.Status(claims.CandidateID, c.Param("id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// GetCurrentQuestion godoc
// GET /api/candidate/session/:id/current-question
func (h *SessionHandler) GetCurrentQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	q, err := h.sessions.CurrentQuestion(claims.CandidateID, c.Param("id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// GetTimeRemaining godoc
// GET /api/candidate/session/:id/time-remaining
func (h *SessionHandler) GetTimeRemaining(c *gin.Context) {
	claims := middleware.GetClaims(c)
	remaining, _, err := h.sessions.Remaining(claims.CandidateID, c.Param("id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, model.TimeRemaining{RemainingTimeSeconds: remaining})
}

// SubmitAnswer godoc
// POST /api/candidate/session/:id/submit-answer
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.sessions.SubmitAnswer(claims.CandidateID, c.Param("id"), req); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Navigate godoc
// POST /api/candidate/session/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.sessions.Navigate(claims.CandidateID, c.Param("id"), req.QuestionIndex); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questionIndex": req.QuestionIndex})
}

// MarkReview godoc
// POST /api/candidate/session/:id/mark-review
func (h *SessionHandler) MarkReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.MarkReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.sessions.MarkForReview(claims.CandidateID, c.Param("id"), req.QuestionID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questionId": req.QuestionID})
}

// Pause godoc
// POST /api/candidate/session/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if err := h.sessions.Pause(claims.CandidateID, c.Param("id")); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusPaused})
}

// Resume godoc
// POST /api/candidate/session/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if err := h.sessions.Resume(claims.CandidateID, c.Param("id")); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusInProgress})
}

// Finish godoc
// POST /api/candidate/session/:id/finish
// Scores the attempt and closes the session.
func (h *SessionHandler) Finish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	res, err := h.sessions.Finish(claims.CandidateID, c.Param("id"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ReportActivity godoc
// POST /api/candidate/session/:id/report-activity
func (h *SessionHandler) ReportActivity(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.ReportActivityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.sessions.ReportActivity(claims.CandidateID, c.Param("id"), req.ActivityType); err != nil {
		failSession(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// failSession maps service errors onto response codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuizNotFound)
	case errors.Is(err, service.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrSessionAlreadyFinal):
		response.Fail(c, http.StatusConflict, response.ErrSessionAlreadyFinal)
	case errors.Is(err, service.ErrSessionPaused):
		response.Fail(c, http.StatusConflict, response.ErrSessionPaused)
	case errors.Is(err, service.ErrQuestionOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionOutOfRange)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrAnswerTypeMismatch):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerTypeMismatch)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
