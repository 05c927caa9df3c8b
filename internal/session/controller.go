package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// Phase enumerates the controller's lifecycle states.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseAnswering Phase = "answering"
	PhaseFinishing Phase = "finishing"
	PhaseFinished  Phase = "finished"
)

// DefaultQuestionBudget is the per-question countdown in ticks (seconds).
const DefaultQuestionBudget = 45

// persistTimeout bounds the detached persistence calls fired on user actions.
const persistTimeout = 10 * time.Second

// ─── Collaborator contracts ─────────────────────────────────────────

// QuestionSampler draws a random question set from the bank, optionally
// narrowed by topic and subject. It may return fewer questions than limit.
type QuestionSampler interface {
	Sample(ctx context.Context, filter model.SampleFilter, limit int) ([]model.Question, error)
}

// AttemptOpener opens a new attempt in the durable store, recording the
// sampled question set so scoring knows the full denominator later even
// when questions go unanswered.
type AttemptOpener interface {
	Open(ctx context.Context, userID uuid.UUID, mode model.AttemptMode, questionIDs []uuid.UUID) (*model.Attempt, error)
}

// AnswerPersister mirrors a local answer selection to durable storage.
// Must be an idempotent last-write-wins upsert on (attempt, question).
type AnswerPersister interface {
	PersistAnswer(ctx context.Context, attemptID, questionID uuid.UUID, label model.OptionLabel) error
}

// MarkPersister mirrors the marked-for-review flag to durable storage.
type MarkPersister interface {
	PersistMark(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error
}

// Scorer closes an attempt remotely and returns the derived result.
type Scorer interface {
	Close(ctx context.Context, attemptID uuid.UUID) (*model.Result, error)
}

// Explainer derives a tutor explanation for one answered question.
type Explainer interface {
	Explain(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID) (string, error)
}

// Collaborators bundles the remote dependencies of a Controller. They are
// passed in explicitly at construction; the controller holds no ambient
// global clients.
type Collaborators struct {
	Questions QuestionSampler
	Attempts  AttemptOpener
	Answers   AnswerPersister
	Marks     MarkPersister
	Scorer    Scorer
	Tutor     Explainer // optional; required for training mode explanations
}

// Options tunes a Controller.
type Options struct {
	// QuestionBudget is the countdown per question in ticks. Zero means
	// DefaultQuestionBudget.
	QuestionBudget int
	// NewTimer builds the tick source. Nil installs a 1-second TickTimer.
	// Tests inject a manual source and call Tick directly.
	NewTimer func(TickFunc) Timer
}

// StartOptions parametrize one attempt.
type StartOptions struct {
	Count     int
	TopicID   *uuid.UUID
	SubjectID *uuid.UUID
	Training  bool
}

// Controller owns the state of a single quiz attempt for one user: phase,
// question set, active index, answers, marks, countdown and result. All
// state mutation happens synchronously under the mutex; remote calls run
// outside it.
type Controller struct {
	userID uuid.UUID
	collab Collaborators
	budget int
	timer  Timer
	events *feed
	log    zerolog.Logger

	mu           sync.Mutex
	phase        Phase
	attempt      *model.Attempt
	questions    []model.Question
	answers      map[uuid.UUID]model.OptionLabel
	marked       map[uuid.UUID]bool
	explanations map[uuid.UUID]string
	result       *model.Result
	activeIdx    int
	remaining    int
	lastErr      string
}

// NewController creates an idle Controller for one user.
func NewController(userID uuid.UUID, collab Collaborators, opts Options, log zerolog.Logger) *Controller {
	c := &Controller{
		userID:       userID,
		collab:       collab,
		budget:       opts.QuestionBudget,
		events:       newFeed(),
		log:          log.With().Str("component", "session").Str("user_id", userID.String()).Logger(),
		phase:        PhaseIdle,
		answers:      make(map[uuid.UUID]model.OptionLabel),
		marked:       make(map[uuid.UUID]bool),
		explanations: make(map[uuid.UUID]string),
	}
	if c.budget <= 0 {
		c.budget = DefaultQuestionBudget
	}
	if opts.NewTimer != nil {
		c.timer = opts.NewTimer(c.Tick)
	} else {
		c.timer = NewTickTimer(time.Second, c.Tick)
	}
	return c
}

// Subscribe returns the controller's event stream.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.Subscribe()
}

// ─── start ──────────────────────────────────────────────────────────

// Start fetches a question set and opens a new attempt. On any failure the
// session returns to idle and a StartError carrying the cause is returned.
// Valid from idle and finished (a fresh session re-enters idle first).
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseIdle, PhaseFinished:
		// proceed
	default:
		c.mu.Unlock()
		return ErrAttemptActive
	}
	c.toLoading()
	c.mu.Unlock()

	mode := model.ModeTimed
	if opts.Training {
		mode = model.ModeTraining
	}

	// Both remote calls happen outside the lock. The bank returning fewer
	// questions than requested is fine; returning none is a start failure.
	filter := model.SampleFilter{TopicID: opts.TopicID, SubjectID: opts.SubjectID}
	questions, err := c.collab.Questions.Sample(ctx, filter, opts.Count)
	if err == nil && len(questions) == 0 {
		err = ErrNoQuestions
	}

	var attempt *model.Attempt
	if err == nil {
		ids := make([]uuid.UUID, len(questions))
		for i := range questions {
			ids[i] = questions[i].ID
		}
		attempt, err = c.collab.Attempts.Open(ctx, c.userID, mode, ids)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.phase = PhaseIdle
		c.lastErr = err.Error()
		c.events.publish(Event{Type: EventPhase, Phase: PhaseIdle, Message: c.lastErr})
		return &StartError{Cause: err}
	}

	c.attempt = attempt
	c.questions = questions
	c.activeIdx = 0
	c.phase = PhaseAnswering
	c.resetTimerLocked()
	c.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("mode", string(mode)).
		Int("questions", len(questions)).
		Msg("Attempt started")
	c.events.publish(Event{Type: EventPhase, Phase: PhaseAnswering})
	return nil
}

// toLoading clears all per-attempt state. Caller holds the lock.
func (c *Controller) toLoading() {
	c.phase = PhaseLoading
	c.attempt = nil
	c.questions = nil
	c.answers = make(map[uuid.UUID]model.OptionLabel)
	c.marked = make(map[uuid.UUID]bool)
	c.explanations = make(map[uuid.UUID]string)
	c.result = nil
	c.activeIdx = 0
	c.lastErr = ""
	c.events.publish(Event{Type: EventPhase, Phase: PhaseLoading})
}

// Reset abandons the current session and returns to idle. The attempt, if
// any, stays open in the durable store; only Finish closes attempts.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Stop()
	c.phase = PhaseIdle
	c.attempt = nil
	c.questions = nil
	c.lastErr = ""
	c.events.publish(Event{Type: EventPhase, Phase: PhaseIdle})
}

// ─── answering ──────────────────────────────────────────────────────

// Choose records the selected label for a question. The local write is
// synchronous and authoritative for the in-progress session; the durable
// mirror is fire-and-forget and its failure never rolls the selection back.
// In training mode a successful selection also triggers a detached tutor
// explanation request.
func (c *Controller) Choose(questionID uuid.UUID, label model.OptionLabel) error {
	if _, err := model.ParseOptionLabel(string(label)); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseAnswering || c.attempt == nil {
		c.mu.Unlock()
		return ErrNoOpenAttempt
	}
	if !c.inSetLocked(questionID) {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}

	c.answers[questionID] = label // last write wins
	attemptID := c.attempt.ID
	training := c.attempt.Mode == model.ModeTraining
	c.mu.Unlock()

	c.events.publish(Event{Type: EventAnswer, QuestionID: questionID, Text: string(label)})

	go c.persistAnswer(attemptID, questionID, label)
	if training && c.collab.Tutor != nil {
		go c.requestExplanation(attemptID, questionID)
	}
	return nil
}

// ToggleMark flips the marked-for-review flag. Local-first, like Choose.
func (c *Controller) ToggleMark(questionID uuid.UUID) error {
	c.mu.Lock()
	if c.phase != PhaseAnswering || c.attempt == nil {
		c.mu.Unlock()
		return ErrNoOpenAttempt
	}
	if !c.inSetLocked(questionID) {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}

	marked := !c.marked[questionID]
	c.marked[questionID] = marked
	attemptID := c.attempt.ID
	c.mu.Unlock()

	c.events.publish(Event{Type: EventMark, QuestionID: questionID})

	go c.persistMark(attemptID, questionID, marked)
	return nil
}

// Advance moves the active index by direction (+1/-1), clamped to the
// question set. The timer is reset on every index change; navigating away
// from an unanswered question is valid.
func (c *Controller) Advance(direction int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAnswering {
		return ErrNoOpenAttempt
	}

	next := c.activeIdx + direction
	if next < 0 || next >= len(c.questions) {
		return nil // clamped, no index change, no timer reset
	}
	c.activeIdx = next
	c.resetTimerLocked()
	c.events.publish(Event{Type: EventNavigate, Index: next, Remaining: c.remaining})
	return nil
}

// JumpTo sets the active index directly.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAnswering {
		return ErrNoOpenAttempt
	}
	if index < 0 || index >= len(c.questions) {
		return ErrIndexOutOfRange
	}
	if index == c.activeIdx {
		return nil
	}
	c.activeIdx = index
	c.resetTimerLocked()
	c.events.publish(Event{Type: EventNavigate, Index: index, Remaining: c.remaining})
	return nil
}

// Tick consumes one countdown unit. At zero it auto-advances, or finishes
// when the last question is active. The finishing phase acts as a guard:
// ticks arriving while a finish is in flight are discarded, so expiry can
// never issue a second finish.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.phase != PhaseAnswering {
		c.mu.Unlock()
		return
	}

	c.remaining--
	if c.remaining > 0 {
		remaining := c.remaining
		c.mu.Unlock()
		c.events.publish(Event{Type: EventTick, Remaining: remaining})
		return
	}

	// Expiry is unconditional: answered or not, move on or finish.
	if c.activeIdx < len(c.questions)-1 {
		c.activeIdx++
		c.resetTimerLocked()
		idx, remaining := c.activeIdx, c.remaining
		c.mu.Unlock()
		c.events.publish(Event{Type: EventNavigate, Index: idx, Remaining: remaining})
		return
	}

	attemptID := c.attempt.ID
	c.beginFinishLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		c.completeFinish(ctx, attemptID)
	}()
}

// ─── finish ─────────────────────────────────────────────────────────

// Finish closes the attempt via the remote scorer. With unanswered
// questions it refuses unless confirmIncomplete is set, leaving the phase
// at answering and making no scorer call. On scorer failure the session
// returns to answering with the attempt still open so finishing can be
// retried.
func (c *Controller) Finish(ctx context.Context, confirmIncomplete bool) (*model.Result, error) {
	c.mu.Lock()
	switch c.phase {
	case PhaseAnswering:
	case PhaseFinishing:
		c.mu.Unlock()
		return nil, ErrFinishInFlight
	default:
		c.mu.Unlock()
		return nil, ErrNoOpenAttempt
	}

	if len(c.answers) < len(c.questions) && !confirmIncomplete {
		c.mu.Unlock()
		return nil, ErrIncomplete
	}

	attemptID := c.attempt.ID
	c.beginFinishLocked()
	c.mu.Unlock()

	return c.completeFinish(ctx, attemptID)
}

// beginFinishLocked enters the finishing guard state and stops the timer.
// Caller holds the lock.
func (c *Controller) beginFinishLocked() {
	c.phase = PhaseFinishing
	c.timer.Stop()
	c.events.publish(Event{Type: EventPhase, Phase: PhaseFinishing})
}

// completeFinish calls the scorer and applies the outcome.
func (c *Controller) completeFinish(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	result, err := c.collab.Scorer.Close(ctx, attemptID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// The attempt stays open and unmodified; resume answering with a
		// fresh countdown so the finish can be retried.
		c.phase = PhaseAnswering
		c.lastErr = err.Error()
		c.resetTimerLocked()
		c.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Finish failed")
		c.events.publish(Event{Type: EventPhase, Phase: PhaseAnswering, Message: c.lastErr})
		return nil, err
	}

	now := time.Now()
	c.result = result
	c.attempt.Status = model.AttemptStatusClosed
	c.attempt.FinishedAt = &now
	c.phase = PhaseFinished
	c.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", result.Score).
		Int("correct", result.Correct).
		Int("total", result.Total).
		Msg("Attempt finished")
	c.events.publish(Event{Type: EventFinished, Phase: PhaseFinished})
	return result, nil
}

// ─── keyboard aliases ───────────────────────────────────────────────

// HandleKey maps single-key shortcuts onto the regular operations:
// a–d choose the corresponding option for the active question, enter
// advances or finishes on the last question. These are pure aliases; they
// introduce no side effects of their own.
func (c *Controller) HandleKey(ctx context.Context, key string) error {
	key = strings.ToLower(key)

	switch key {
	case "a", "b", "c", "d":
		c.mu.Lock()
		if c.phase != PhaseAnswering || c.activeIdx >= len(c.questions) {
			c.mu.Unlock()
			return ErrNoOpenAttempt
		}
		qid := c.questions[c.activeIdx].ID
		c.mu.Unlock()
		return c.Choose(qid, model.OptionLabel(strings.ToUpper(key)))

	case "enter":
		c.mu.Lock()
		last := c.activeIdx >= len(c.questions)-1
		c.mu.Unlock()
		if !last {
			return c.Advance(+1)
		}
		_, err := c.Finish(ctx, false)
		return err
	}
	return nil
}

// ─── internals ──────────────────────────────────────────────────────

// resetTimerLocked restores the full per-question budget and restarts the
// tick source. Caller holds the lock.
func (c *Controller) resetTimerLocked() {
	c.remaining = c.budget
	c.timer.Reset()
}

func (c *Controller) inSetLocked(questionID uuid.UUID) bool {
	for i := range c.questions {
		if c.questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// persistAnswer mirrors one selection to the durable store. Runs detached:
// failures surface on the event feed but leave local state untouched.
func (c *Controller) persistAnswer(attemptID, questionID uuid.UUID, label model.OptionLabel) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.collab.Answers.PersistAnswer(ctx, attemptID, questionID, label); err != nil {
		c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Answer persistence failed")
		c.events.publish(Event{Type: EventWarning, QuestionID: questionID, Message: err.Error()})
	}
}

func (c *Controller) persistMark(attemptID, questionID uuid.UUID, marked bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.collab.Marks.PersistMark(ctx, attemptID, questionID, marked); err != nil {
		c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Mark persistence failed")
		c.events.publish(Event{Type: EventWarning, QuestionID: questionID, Message: err.Error()})
	}
}

// requestExplanation asks the tutor for one question. An abandoned request
// is allowed to complete and land its text after the user has moved on.
func (c *Controller) requestExplanation(attemptID, questionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	userID := c.userID
	text, err := c.collab.Tutor.Explain(ctx, attemptID, questionID, &userID)
	if err != nil {
		c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Tutor request failed")
		c.events.publish(Event{Type: EventWarning, QuestionID: questionID, Message: err.Error()})
		return
	}

	c.mu.Lock()
	c.explanations[questionID] = text
	c.mu.Unlock()
	c.events.publish(Event{Type: EventExplanation, QuestionID: questionID, Text: text})
}
