package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/middleware"
	"github.com/timisisipi/oposai-backend/internal/tutor"
)

// ExplanationService derives a tutor explanation for one answered question.
type ExplanationService interface {
	Explain(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID) (string, error)
}

// TutorHandler exposes the tutor explanation endpoint. Its response shape
// is the flat {ok, text|error} contract the quiz client consumes, not the
// standard envelope.
type TutorHandler struct {
	svc ExplanationService
	log zerolog.Logger
}

// NewTutorHandler creates a new TutorHandler.
func NewTutorHandler(svc ExplanationService, log zerolog.Logger) *TutorHandler {
	return &TutorHandler{
		svc: svc,
		log: log.With().Str("component", "tutor_handler").Logger(),
	}
}

type tutorRequest struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
}

// Explain godoc
// POST /api/v1/tutor
// Derives (or returns the cached) explanation for one answered question.
func (h *TutorHandler) Explain(c *gin.Context) {
	var req tutorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AttemptID == "" || req.QuestionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing attempt_id or question_id"})
		return
	}

	attemptID, err := uuid.Parse(req.AttemptID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid attempt_id"})
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid question_id"})
		return
	}

	var userID *uuid.UUID
	if claims := middleware.GetClaims(c); claims != nil {
		id := claims.UserID
		userID = &id
	}

	text, err := h.svc.Explain(c.Request.Context(), attemptID, questionID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "text": text})
}

// writeError maps the tutor error taxonomy onto HTTP statuses: bad input is
// handled above, unknown question is 404, an explicit provider error keeps
// its status and verbatim message, exhaustion of both call shapes is 503,
// and anything else is a generic 500.
func (h *TutorHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, tutor.ErrQuestionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "question not found"})
		return
	}

	var upstreamErr *tutor.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := upstreamErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"ok": false, "error": upstreamErr.Message})
		return
	}

	if errors.Is(err, tutor.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": tutor.ErrUnavailable.Error()})
		return
	}

	h.log.Error().Err(err).Msg("Tutor request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}
