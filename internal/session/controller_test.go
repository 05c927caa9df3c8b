package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeBank struct {
	questions []model.Question
	filter    model.SampleFilter
	err       error
}

func (f *fakeBank) Sample(ctx context.Context, filter model.SampleFilter, limit int) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filter = filter
	if limit > len(f.questions) {
		limit = len(f.questions)
	}
	return f.questions[:limit], nil
}

type fakeOpener struct {
	mode        model.AttemptMode
	questionIDs []uuid.UUID
	err         error
}

func (f *fakeOpener) Open(ctx context.Context, userID uuid.UUID, mode model.AttemptMode, questionIDs []uuid.UUID) (*model.Attempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mode = mode
	f.questionIDs = questionIDs
	return &model.Attempt{
		ID:        uuid.New(),
		UserID:    userID,
		Mode:      mode,
		Status:    model.AttemptStatusOpen,
		StartedAt: time.Now(),
	}, nil
}

type persistedAnswer struct {
	questionID uuid.UUID
	label      model.OptionLabel
}

type fakePersister struct {
	mu      sync.Mutex
	answers []persistedAnswer
	marks   []bool
	err     error
	done    chan struct{}
}

func newFakePersister() *fakePersister {
	return &fakePersister{done: make(chan struct{}, 16)}
}

func (f *fakePersister) PersistAnswer(ctx context.Context, attemptID, questionID uuid.UUID, label model.OptionLabel) error {
	f.mu.Lock()
	f.answers = append(f.answers, persistedAnswer{questionID, label})
	err := f.err
	f.mu.Unlock()
	f.done <- struct{}{}
	return err
}

func (f *fakePersister) PersistMark(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error {
	f.mu.Lock()
	f.marks = append(f.marks, marked)
	err := f.err
	f.mu.Unlock()
	f.done <- struct{}{}
	return err
}

func (f *fakePersister) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persistence call")
	}
}

type fakeScorer struct {
	mu     sync.Mutex
	result *model.Result
	err    error
	calls  int
	lastID uuid.UUID
	block  chan struct{} // when set, Close waits until it is closed
}

func (f *fakeScorer) Close(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastID = attemptID
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExplainer struct {
	text string
	err  error
	done chan struct{}
}

func (f *fakeExplainer) Explain(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID) (string, error) {
	defer func() { f.done <- struct{}{} }()
	return f.text, f.err
}

// countingTimer records Reset and Stop calls.
type countingTimer struct {
	mu     sync.Mutex
	resets int
	stops  int
}

func (t *countingTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets++
}

func (t *countingTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

func (t *countingTimer) resetCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// ─── Helpers ────────────────────────────────────────────────────────

func questionSet(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), Stem: "q"}
	}
	return qs
}

type fixture struct {
	ctrl      *Controller
	bank      *fakeBank
	opener    *fakeOpener
	persister *fakePersister
	scorer    *fakeScorer
	explainer *fakeExplainer
	timer     *countingTimer
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		bank:      &fakeBank{questions: questionSet(n)},
		opener:    &fakeOpener{},
		persister: newFakePersister(),
		scorer:    &fakeScorer{result: &model.Result{Score: 100, Correct: n, Total: n}},
		explainer: &fakeExplainer{text: "porque sí", done: make(chan struct{}, 16)},
		timer:     &countingTimer{},
	}
	f.ctrl = NewController(uuid.New(), Collaborators{
		Questions: f.bank,
		Attempts:  f.opener,
		Answers:   f.persister,
		Marks:     f.persister,
		Scorer:    f.scorer,
		Tutor:     f.explainer,
	}, Options{
		QuestionBudget: 3,
		NewTimer:       func(TickFunc) Timer { return f.timer },
	}, zerolog.Nop())
	return f
}

func (f *fixture) start(t *testing.T, opts StartOptions) {
	t.Helper()
	if err := f.ctrl.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func waitPhase(t *testing.T, ctrl *Controller, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.Snapshot().Phase == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase = %s, want %s", ctrl.Snapshot().Phase, want)
}

// ─── Start ──────────────────────────────────────────────────────────

func TestStartEntersAnswering(t *testing.T) {
	f := newFixture(t, 5)
	f.start(t, StartOptions{Count: 5})

	snap := f.ctrl.Snapshot()
	if snap.Phase != PhaseAnswering {
		t.Fatalf("phase = %s, want answering", snap.Phase)
	}
	if len(snap.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(snap.Questions))
	}
	if snap.ActiveIndex != 0 {
		t.Fatalf("active index = %d, want 0", snap.ActiveIndex)
	}
	if snap.Remaining != 3 {
		t.Fatalf("remaining = %d, want full budget 3", snap.Remaining)
	}
	if f.opener.mode != model.ModeTimed {
		t.Fatalf("mode = %s, want timed", f.opener.mode)
	}
}

func TestStartTrainingMode(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3, Training: true})

	if f.opener.mode != model.ModeTraining {
		t.Fatalf("mode = %s, want training", f.opener.mode)
	}
}

func TestStartForwardsSampleFilter(t *testing.T) {
	f := newFixture(t, 3)
	topicID := uuid.New()
	subjectID := uuid.New()
	f.start(t, StartOptions{Count: 3, TopicID: &topicID, SubjectID: &subjectID})

	if f.bank.filter.TopicID == nil || *f.bank.filter.TopicID != topicID {
		t.Fatalf("topic filter = %v, want %s", f.bank.filter.TopicID, topicID)
	}
	if f.bank.filter.SubjectID == nil || *f.bank.filter.SubjectID != subjectID {
		t.Fatalf("subject filter = %v, want %s", f.bank.filter.SubjectID, subjectID)
	}
}

func TestStartRecordsSampledSet(t *testing.T) {
	f := newFixture(t, 5)
	f.start(t, StartOptions{Count: 5})

	// The opener must receive every sampled question id so scoring can
	// count unanswered questions in the total later.
	snap := f.ctrl.Snapshot()
	if got, want := len(f.opener.questionIDs), len(snap.Questions); got != want {
		t.Fatalf("opener received %d question ids, want %d", got, want)
	}
	for i, q := range snap.Questions {
		if f.opener.questionIDs[i] != q.ID {
			t.Fatalf("question id %d = %s, want %s", i, f.opener.questionIDs[i], q.ID)
		}
	}
}

func TestStartUndersizedSetIsFine(t *testing.T) {
	f := newFixture(t, 2)
	f.start(t, StartOptions{Count: 10})

	if got := len(f.ctrl.Snapshot().Questions); got != 2 {
		t.Fatalf("questions = %d, want 2", got)
	}
}

func TestStartEmptySetFails(t *testing.T) {
	f := newFixture(t, 0)
	err := f.ctrl.Start(context.Background(), StartOptions{Count: 5})

	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("err = %v, want StartError", err)
	}
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("cause = %v, want ErrNoQuestions", startErr.Cause)
	}
	if phase := f.ctrl.Snapshot().Phase; phase != PhaseIdle {
		t.Fatalf("phase = %s, want idle", phase)
	}
}

func TestStartSamplerFailureReturnsToIdle(t *testing.T) {
	f := newFixture(t, 5)
	f.bank.err = errors.New("bank down")

	err := f.ctrl.Start(context.Background(), StartOptions{Count: 5})
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("err = %v, want StartError", err)
	}

	snap := f.ctrl.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want idle", snap.Phase)
	}
	if snap.LastError == "" {
		t.Fatal("expected the failure to be surfaced in the snapshot")
	}

	// The failure is transient: the same session can start again.
	f.bank.err = nil
	f.start(t, StartOptions{Count: 5})
}

func TestStartWhileAnsweringRejected(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if err := f.ctrl.Start(context.Background(), StartOptions{Count: 3}); !errors.Is(err, ErrAttemptActive) {
		t.Fatalf("err = %v, want ErrAttemptActive", err)
	}
}

func TestStartAfterFinishedBeginsFresh(t *testing.T) {
	f := newFixture(t, 2)
	f.start(t, StartOptions{Count: 2})

	snap := f.ctrl.Snapshot()
	for _, q := range snap.Questions {
		if err := f.ctrl.Choose(q.ID, model.LabelA); err != nil {
			t.Fatalf("Choose: %v", err)
		}
	}
	if _, err := f.ctrl.Finish(context.Background(), false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	f.start(t, StartOptions{Count: 2})
	snap = f.ctrl.Snapshot()
	if snap.Phase != PhaseAnswering {
		t.Fatalf("phase = %s, want answering", snap.Phase)
	}
	if snap.Answered != 0 || snap.Result != nil {
		t.Fatal("expected prior attempt state to be cleared")
	}
}

// ─── Choose / ToggleMark ────────────────────────────────────────────

func TestChooseLastWriteWins(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[0].ID

	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose A: %v", err)
	}
	if err := f.ctrl.Choose(qID, model.LabelC); err != nil {
		t.Fatalf("Choose C: %v", err)
	}
	f.persister.wait(t)
	f.persister.wait(t)

	snap := f.ctrl.Snapshot()
	if got := snap.Answers[qID]; got != model.LabelC {
		t.Fatalf("answer = %s, want C", got)
	}
	if snap.Answered != 1 {
		t.Fatalf("answered = %d, want 1", snap.Answered)
	}
}

func TestChoosePersistenceFailureKeepsLocalAnswer(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[0].ID

	f.persister.err = errors.New("redis down")
	if err := f.ctrl.Choose(qID, model.LabelB); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	f.persister.wait(t)

	if got := f.ctrl.Snapshot().Answers[qID]; got != model.LabelB {
		t.Fatalf("answer = %s, want B despite persistence failure", got)
	}
}

func TestChooseRejectsUnknownQuestion(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if err := f.ctrl.Choose(uuid.New(), model.LabelA); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestChooseRejectsInvalidLabel(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[0].ID

	if err := f.ctrl.Choose(qID, model.OptionLabel("E")); err == nil {
		t.Fatal("expected invalid label to be rejected")
	}
}

func TestChooseWithoutAttempt(t *testing.T) {
	f := newFixture(t, 3)
	if err := f.ctrl.Choose(uuid.New(), model.LabelA); !errors.Is(err, ErrNoOpenAttempt) {
		t.Fatalf("err = %v, want ErrNoOpenAttempt", err)
	}
}

func TestToggleMarkFlips(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[1].ID

	if err := f.ctrl.ToggleMark(qID); err != nil {
		t.Fatalf("ToggleMark: %v", err)
	}
	f.persister.wait(t)
	if !f.ctrl.Snapshot().Marked[qID] {
		t.Fatal("expected question to be marked")
	}

	if err := f.ctrl.ToggleMark(qID); err != nil {
		t.Fatalf("ToggleMark: %v", err)
	}
	f.persister.wait(t)
	if f.ctrl.Snapshot().Marked[qID] {
		t.Fatal("expected mark to be cleared")
	}
}

func TestTrainingModeRequestsExplanation(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3, Training: true})
	qID := f.ctrl.Snapshot().Questions[0].ID

	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	select {
	case <-f.explainer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for explanation request")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.ctrl.Snapshot().Explanations[qID] == "porque sí" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("explanation never landed in the snapshot")
}

func TestTimedModeSkipsExplanation(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[0].ID

	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	f.persister.wait(t)

	select {
	case <-f.explainer.done:
		t.Fatal("timed mode must not request explanations")
	case <-time.After(50 * time.Millisecond):
	}
}

// ─── Navigation ─────────────────────────────────────────────────────

func TestAdvanceClampsAtBounds(t *testing.T) {
	f := newFixture(t, 2)
	f.start(t, StartOptions{Count: 2})

	if err := f.ctrl.Advance(-1); err != nil {
		t.Fatalf("Advance(-1): %v", err)
	}
	if idx := f.ctrl.Snapshot().ActiveIndex; idx != 0 {
		t.Fatalf("index = %d, want clamp at 0", idx)
	}

	if err := f.ctrl.Advance(+1); err != nil {
		t.Fatalf("Advance(+1): %v", err)
	}
	if err := f.ctrl.Advance(+1); err != nil {
		t.Fatalf("Advance(+1) at end: %v", err)
	}
	if idx := f.ctrl.Snapshot().ActiveIndex; idx != 1 {
		t.Fatalf("index = %d, want clamp at 1", idx)
	}
}

func TestNavigationResetsTimerOnlyOnChange(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	base := f.timer.resetCount()

	// Clamped advance: no index change, no reset.
	if err := f.ctrl.Advance(-1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := f.timer.resetCount(); got != base {
		t.Fatalf("resets = %d, want unchanged %d", got, base)
	}

	// Same-index jump: no reset.
	if err := f.ctrl.JumpTo(0); err != nil {
		t.Fatalf("JumpTo(0): %v", err)
	}
	if got := f.timer.resetCount(); got != base {
		t.Fatalf("resets = %d, want unchanged %d", got, base)
	}

	// Real move: one reset, full budget.
	if err := f.ctrl.JumpTo(2); err != nil {
		t.Fatalf("JumpTo(2): %v", err)
	}
	if got := f.timer.resetCount(); got != base+1 {
		t.Fatalf("resets = %d, want %d", got, base+1)
	}
	if remaining := f.ctrl.Snapshot().Remaining; remaining != 3 {
		t.Fatalf("remaining = %d, want full budget", remaining)
	}
}

func TestJumpToOutOfRange(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if err := f.ctrl.JumpTo(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
	if err := f.ctrl.JumpTo(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
}

// ─── Ticks and expiry ───────────────────────────────────────────────

func TestTickCountsDown(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	f.ctrl.Tick()
	if remaining := f.ctrl.Snapshot().Remaining; remaining != 2 {
		t.Fatalf("remaining = %d, want 2", remaining)
	}
}

func TestExpiryAdvancesUnanswered(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	for i := 0; i < 3; i++ {
		f.ctrl.Tick()
	}

	snap := f.ctrl.Snapshot()
	if snap.ActiveIndex != 1 {
		t.Fatalf("index = %d, want auto-advance to 1", snap.ActiveIndex)
	}
	if snap.Remaining != 3 {
		t.Fatalf("remaining = %d, want fresh budget", snap.Remaining)
	}
	if snap.Phase != PhaseAnswering {
		t.Fatalf("phase = %s, want answering", snap.Phase)
	}
}

func TestExpiryOnLastQuestionFinishes(t *testing.T) {
	f := newFixture(t, 2)
	f.start(t, StartOptions{Count: 2})

	if err := f.ctrl.JumpTo(1); err != nil {
		t.Fatalf("JumpTo: %v", err)
	}
	for i := 0; i < 3; i++ {
		f.ctrl.Tick()
	}

	waitPhase(t, f.ctrl, PhaseFinished)
	if calls := f.scorer.callCount(); calls != 1 {
		t.Fatalf("scorer calls = %d, want 1", calls)
	}
}

func TestTicksDuringFinishAreDiscarded(t *testing.T) {
	f := newFixture(t, 1)
	f.start(t, StartOptions{Count: 1})

	f.scorer.block = make(chan struct{})

	for i := 0; i < 3; i++ {
		f.ctrl.Tick()
	}
	// Finish is now in flight; further ticks must not reach the scorer.
	f.ctrl.Tick()
	f.ctrl.Tick()

	close(f.scorer.block)
	waitPhase(t, f.ctrl, PhaseFinished)
	if calls := f.scorer.callCount(); calls != 1 {
		t.Fatalf("scorer calls = %d, want exactly 1", calls)
	}
}

// ─── Finish ─────────────────────────────────────────────────────────

func TestFinishIncompleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if _, err := f.ctrl.Finish(context.Background(), false); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if calls := f.scorer.callCount(); calls != 0 {
		t.Fatalf("scorer calls = %d, want none on refused finish", calls)
	}
	if phase := f.ctrl.Snapshot().Phase; phase != PhaseAnswering {
		t.Fatalf("phase = %s, want answering", phase)
	}

	result, err := f.ctrl.Finish(context.Background(), true)
	if err != nil {
		t.Fatalf("confirmed Finish: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
}

func TestFinishCompleteAttempt(t *testing.T) {
	f := newFixture(t, 2)
	f.start(t, StartOptions{Count: 2})
	snap := f.ctrl.Snapshot()
	for _, q := range snap.Questions {
		if err := f.ctrl.Choose(q.ID, model.LabelA); err != nil {
			t.Fatalf("Choose: %v", err)
		}
	}

	result, err := f.ctrl.Finish(context.Background(), false)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("score = %v, want 100", result.Score)
	}

	snap = f.ctrl.Snapshot()
	if snap.Phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished", snap.Phase)
	}
	if snap.Result == nil {
		t.Fatal("expected result in snapshot")
	}
}

func TestFinishFailureResumesAnswering(t *testing.T) {
	f := newFixture(t, 1)
	f.start(t, StartOptions{Count: 1})
	qID := f.ctrl.Snapshot().Questions[0].ID
	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	f.scorer.err = errors.New("scoring down")
	if _, err := f.ctrl.Finish(context.Background(), false); err == nil {
		t.Fatal("expected finish to fail")
	}

	snap := f.ctrl.Snapshot()
	if snap.Phase != PhaseAnswering {
		t.Fatalf("phase = %s, want answering for retry", snap.Phase)
	}
	if snap.Remaining != 3 {
		t.Fatalf("remaining = %d, want fresh budget", snap.Remaining)
	}

	// Retry succeeds once the scorer recovers.
	f.scorer.mu.Lock()
	f.scorer.err = nil
	f.scorer.mu.Unlock()
	if _, err := f.ctrl.Finish(context.Background(), false); err != nil {
		t.Fatalf("retry Finish: %v", err)
	}
}

func TestFinishTwiceRejected(t *testing.T) {
	f := newFixture(t, 1)
	f.start(t, StartOptions{Count: 1})
	qID := f.ctrl.Snapshot().Questions[0].ID
	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	if _, err := f.ctrl.Finish(context.Background(), false); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := f.ctrl.Finish(context.Background(), false); !errors.Is(err, ErrNoOpenAttempt) {
		t.Fatalf("err = %v, want ErrNoOpenAttempt", err)
	}
}

func TestFinishWhileFinishInFlight(t *testing.T) {
	f := newFixture(t, 1)
	f.start(t, StartOptions{Count: 1})

	f.scorer.block = make(chan struct{})
	for i := 0; i < 3; i++ {
		f.ctrl.Tick() // expiry on the only question starts a finish
	}

	if _, err := f.ctrl.Finish(context.Background(), true); !errors.Is(err, ErrFinishInFlight) {
		t.Fatalf("err = %v, want ErrFinishInFlight", err)
	}

	close(f.scorer.block)
	waitPhase(t, f.ctrl, PhaseFinished)
}

// ─── Keyboard ───────────────────────────────────────────────────────

func TestHandleKeyChoosesOption(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})
	qID := f.ctrl.Snapshot().Questions[0].ID

	if err := f.ctrl.HandleKey(context.Background(), "b"); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	f.persister.wait(t)

	if got := f.ctrl.Snapshot().Answers[qID]; got != model.LabelB {
		t.Fatalf("answer = %s, want B", got)
	}
}

func TestHandleKeyEnterAdvances(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if err := f.ctrl.HandleKey(context.Background(), "Enter"); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if idx := f.ctrl.Snapshot().ActiveIndex; idx != 1 {
		t.Fatalf("index = %d, want 1", idx)
	}
}

func TestHandleKeyEnterOnLastFinishes(t *testing.T) {
	f := newFixture(t, 1)
	f.start(t, StartOptions{Count: 1})
	qID := f.ctrl.Snapshot().Questions[0].ID
	if err := f.ctrl.Choose(qID, model.LabelA); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	if err := f.ctrl.HandleKey(context.Background(), "Enter"); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if phase := f.ctrl.Snapshot().Phase; phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished", phase)
	}
}

func TestHandleKeyIgnoresUnknownKeys(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	if err := f.ctrl.HandleKey(context.Background(), "x"); err != nil {
		t.Fatalf("unknown key should be ignored, got %v", err)
	}
}

// ─── Reset ──────────────────────────────────────────────────────────

func TestResetAbandonsSession(t *testing.T) {
	f := newFixture(t, 3)
	f.start(t, StartOptions{Count: 3})

	f.ctrl.Reset()
	snap := f.ctrl.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want idle", snap.Phase)
	}
	if calls := f.scorer.callCount(); calls != 0 {
		t.Fatal("reset must not score the attempt")
	}
}

// ─── End-to-end scenario ────────────────────────────────────────────

func TestFiveQuestionScenario(t *testing.T) {
	f := newFixture(t, 5)
	f.scorer.result = &model.Result{Score: 80, Correct: 4, Total: 5}
	f.start(t, StartOptions{Count: 5})
	questions := f.ctrl.Snapshot().Questions

	// Answer questions 1 through 4 with A; leave question 5 untouched.
	for i := 0; i < 4; i++ {
		if err := f.ctrl.Choose(questions[i].ID, model.LabelA); err != nil {
			t.Fatalf("Choose %d: %v", i, err)
		}
		if err := f.ctrl.Advance(+1); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}

	// Finish despite the unanswered question, explicitly confirmed.
	result, err := f.ctrl.Finish(context.Background(), true)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if calls := f.scorer.callCount(); calls != 1 {
		t.Fatalf("scorer calls = %d, want exactly 1", calls)
	}
	if result.Total != 5 {
		t.Fatalf("total = %d, want 5 including the unanswered item", result.Total)
	}

	snap := f.ctrl.Snapshot()
	f.scorer.mu.Lock()
	scoredID := f.scorer.lastID
	f.scorer.mu.Unlock()
	if snap.AttemptID == nil || scoredID != *snap.AttemptID {
		t.Fatalf("scorer got attempt %s, session holds %v", scoredID, snap.AttemptID)
	}
	if snap.Phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished", snap.Phase)
	}
	if snap.Answered != 4 {
		t.Fatalf("answered = %d, want 4", snap.Answered)
	}
}
