package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/middleware"
	"github.com/timisisipi/oposai-backend/internal/model"
	"github.com/timisisipi/oposai-backend/internal/repository"
	"github.com/timisisipi/oposai-backend/internal/response"
	"github.com/timisisipi/oposai-backend/internal/session"
	"github.com/timisisipi/oposai-backend/internal/validator"
)

// AttemptHandler exposes the attempt session lifecycle over HTTP. Every
// route operates on the authenticated user's own controller.
type AttemptHandler struct {
	registry *session.Registry
	attempts *repository.AttemptRepository
	bank     *repository.QuestionRepository
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	registry *session.Registry,
	attempts *repository.AttemptRepository,
	bank *repository.QuestionRepository,
	log zerolog.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		registry: registry,
		attempts: attempts,
		bank:     bank,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

type startRequest struct {
	Count     int     `json:"count" binding:"required,min=1,max=50"`
	TopicID   *string `json:"topic_id,omitempty"`
	SubjectID *string `json:"subject_id,omitempty"`
	Training  bool    `json:"training"`
}

// Start godoc
// POST /api/v1/attempts
// Opens a new attempt: samples questions and enters the answering phase.
func (h *AttemptHandler) Start(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req startRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	opts := session.StartOptions{Count: req.Count, Training: req.Training}
	if req.TopicID != nil && *req.TopicID != "" {
		topicID, err := uuid.Parse(*req.TopicID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		opts.TopicID = &topicID
	}
	if req.SubjectID != nil && *req.SubjectID != "" {
		subjectID, err := uuid.Parse(*req.SubjectID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		opts.SubjectID = &subjectID
	}

	if err := ctrl.Start(c.Request.Context(), opts); err != nil {
		if errors.Is(err, session.ErrAttemptActive) {
			response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
			return
		}
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrAttemptStart, err.Error())
		return
	}

	response.Success(c, http.StatusCreated, ctrl.Snapshot())
}

// GetActive godoc
// GET /api/v1/attempts/active
// Returns the live session snapshot (phase idle when nothing is running).
func (h *AttemptHandler) GetActive(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

type answerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Label      string `json:"label" binding:"required,oneof=A B C D"`
}

// SubmitAnswer godoc
// POST /api/v1/attempts/answers
// Records a selection locally and mirrors it to durable storage.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := ctrl.Choose(questionID, model.OptionLabel(req.Label)); err != nil {
		h.writeSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "label": req.Label})
}

type markRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// ToggleMark godoc
// POST /api/v1/attempts/marks
// Flips the marked-for-review flag of one question.
func (h *AttemptHandler) ToggleMark(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req markRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := ctrl.ToggleMark(questionID); err != nil {
		h.writeSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID})
}

type navigateRequest struct {
	Direction *int `json:"direction,omitempty" binding:"omitempty,oneof=-1 1"`
	Index     *int `json:"index,omitempty"`
}

// Navigate godoc
// POST /api/v1/attempts/navigate
// Moves the active question relatively (direction) or absolutely (index).
func (h *AttemptHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req navigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = ctrl.JumpTo(*req.Index)
	case req.Direction != nil:
		err = ctrl.Advance(*req.Direction)
	default:
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if err != nil {
		h.writeSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

// PressKey godoc
// POST /api/v1/attempts/keys
// Applies a keyboard shortcut (a–d select, enter advances/finishes).
func (h *AttemptHandler) PressKey(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req keyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.HandleKey(c.Request.Context(), req.Key); err != nil {
		h.writeSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

type finishRequest struct {
	ConfirmIncomplete bool `json:"confirm_incomplete"`
}

// Finish godoc
// POST /api/v1/attempts/finish
// Closes the attempt via the remote scorer. An incomplete attempt requires
// confirm_incomplete; declining leaves the session answering.
func (h *AttemptHandler) Finish(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	result, err := ctrl.Finish(c.Request.Context(), req.ConfirmIncomplete)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrIncomplete):
			response.Fail(c, http.StatusConflict, response.ErrAttemptIncomplete)
		case errors.Is(err, session.ErrFinishInFlight):
			response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
		case errors.Is(err, session.ErrNoOpenAttempt):
			response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
		default:
			response.FailWithMessage(c, http.StatusBadGateway, response.ErrAttemptFinish, err.Error())
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// History godoc
// GET /api/v1/attempts/history
// Lists the user's past attempts with their stored scores.
func (h *AttemptHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	history, err := h.attempts.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("History query failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if history == nil {
		history = []model.AttemptSummary{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": history})
}

// ListTopics godoc
// GET /api/v1/topics
// Returns all topics for the start-screen filter.
func (h *AttemptHandler) ListTopics(c *gin.Context) {
	topics, err := h.bank.ListTopics(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Topics query failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if topics == nil {
		topics = []model.Topic{}
	}

	response.Success(c, http.StatusOK, gin.H{"topics": topics})
}

// controller resolves the caller's session controller from their claims.
func (h *AttemptHandler) controller(c *gin.Context) (*session.Controller, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return h.registry.Obtain(claims.UserID), true
}

// writeSessionError maps session errors onto HTTP codes.
func (h *AttemptHandler) writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoOpenAttempt):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, session.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, session.ErrIncomplete):
		response.Fail(c, http.StatusConflict, response.ErrAttemptIncomplete)
	default:
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error())
	}
}
