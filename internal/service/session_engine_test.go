package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// engineClock is a hand-cranked clock so timer arithmetic is exact.
type engineClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *engineClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *engineClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(source QuestionSource) (*SessionEngine, *memSessionStore, *engineClock) {
	store := newMemSessionStore()
	clock := &engineClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	cfg := &config.Config{AverageQuestionMinutes: 5, DefaultQuestionBatch: 10}
	e := NewSessionEngine(
		store,
		source,
		NewResponseScorer(DefaultProfile()),
		NewPerformanceTracker(&fakeHistory{}, zerolog.Nop()),
		nil, // no redis in unit tests
		cfg,
		zerolog.Nop(),
	)
	e.now = clock.now
	return e, store, clock
}

func activeCount(e *SessionEngine) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

const goodAnswer = "First I broke the problem down and implemented a fix. " +
	"Then I measured the impact and as a result error rates dropped by 30%. " +
	"For example, the checkout flow recovered within a day."

func TestStartBatchSizing(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(20, model.QuestionTypeBehavioral)})

	// 30 minutes at 5 minutes per question.
	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(sess.Questions) != 6 {
		t.Fatalf("questions = %d, want 6", len(sess.Questions))
	}
	if sess.Status != model.SessionStatusActive {
		t.Fatalf("status = %s, want ACTIVE", sess.Status)
	}

	stored, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(stored.Questions) != 6 {
		t.Fatalf("stored questions = %d, want 6", len(stored.Questions))
	}
	if activeCount(e) != 1 {
		t.Fatalf("active entries = %d, want 1", activeCount(e))
	}
}

func TestStartUntimedUsesDefaultBatch(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(20, model.QuestionTypeTechnical)})

	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{
		Difficulty: model.DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(sess.Questions) != 10 {
		t.Fatalf("questions = %d, want the default batch of 10", len(sess.Questions))
	}
}

func TestStartEmptySupplyCompletesImmediately(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{})

	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Status != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED when supply is empty", sess.Status)
	}
	if sess.EndedAt == nil {
		t.Fatal("EndedAt not set on immediate completion")
	}
	if _, err := store.GetSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("immediately completed session not persisted: %v", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d, want 0 for a completed session", activeCount(e))
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(5, model.QuestionTypeBehavioral)})

	_, err := e.Start(context.Background(), "user-1", model.SessionConfig{
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 3, // below the minimum
	})
	if !errs.IsValidation(err) {
		t.Fatalf("Start error = %v, want ValidationError", err)
	}

	got, err := store.GetUserSessions(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("GetUserSessions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("invalid start persisted %d sessions", len(got))
	}
}

func TestSubmitFlowAutoCompletes(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})

	var hooked *model.SessionSummary
	e.OnCompletion(func(_ context.Context, _ *model.Session, summary *model.SessionSummary) {
		hooked = summary
	})

	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	first, err := e.SubmitResponse(context.Background(), sess.ID, sess.Questions[0].ID, goodAnswer, 60)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if first.SessionComplete {
		t.Fatal("session reported complete after first of two answers")
	}
	if first.NextQuestion == nil || first.NextQuestion.ID != sess.Questions[1].ID {
		t.Fatalf("next question = %v, want the second question", first.NextQuestion)
	}
	if first.Response.Analysis == nil {
		t.Fatal("matched response was not scored")
	}
	if first.Progress.Completed != 1 || first.Progress.Total != 2 {
		t.Fatalf("progress = %+v, want 1/2", first.Progress)
	}
	if first.Analysis == nil {
		t.Fatal("rolling session analysis missing after submit")
	}

	second, err := e.SubmitResponse(context.Background(), sess.ID, sess.Questions[1].ID, goodAnswer, 45)
	if err != nil {
		t.Fatalf("SubmitResponse second: %v", err)
	}
	if !second.SessionComplete {
		t.Fatal("session did not auto-complete on the last answer")
	}
	if second.NextQuestion != nil {
		t.Fatalf("next question after completion = %v, want nil", second.NextQuestion)
	}

	stored, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != model.SessionStatusCompleted {
		t.Fatalf("stored status = %s, want COMPLETED", stored.Status)
	}
	if hooked == nil {
		t.Fatal("completion hook did not run")
	}
	if hooked.Answered != 2 || hooked.QuestionsAsked != 2 {
		t.Fatalf("hook summary = %+v, want 2/2", hooked)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after completion, want 0", activeCount(e))
	}
}

func TestSubmitWrongQuestionLeavesStoreUntouched(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})

	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = e.SubmitResponse(context.Background(), sess.ID, sess.Questions[1].ID, goodAnswer, 60)
	if !errs.IsQuestionMismatch(err) {
		t.Fatalf("out-of-order submit error = %v, want QuestionMismatchError", err)
	}

	stored, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(stored.Responses) != 0 {
		t.Fatalf("stored responses = %d after failed submit, want 0", len(stored.Responses))
	}
	if stored.Status != model.SessionStatusActive {
		t.Fatalf("stored status = %s, want ACTIVE", stored.Status)
	}
}

func TestSubmitEmptyTextAccepted(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})

	sess, err := e.Start(context.Background(), "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := e.SubmitResponse(context.Background(), sess.ID, sess.Questions[0].ID, "", 10)
	if err != nil {
		t.Fatalf("empty-text submit: %v", err)
	}
	if res.Response.Analysis == nil || res.Response.Analysis.OverallScore != 0 {
		t.Fatalf("empty response analysis = %+v, want zero scores", res.Response.Analysis)
	}
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	e, _, clock := newTestEngine(&fakeSource{questions: makeQuestions(6, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.advance(10 * time.Minute)
	if _, err := e.Pause(ctx, sess.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// The paused stretch must not burn the allowance.
	clock.advance(20 * time.Minute)
	if _, err := e.Resume(ctx, sess.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	view, err := e.Progress(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if view.RemainingSeconds == nil || *view.RemainingSeconds != (20*time.Minute).Seconds() {
		t.Fatalf("remaining after resume = %v, want 1200s", view.RemainingSeconds)
	}

	clock.advance(5 * time.Minute)
	view, err = e.Progress(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if view.RemainingSeconds == nil || *view.RemainingSeconds != (15*time.Minute).Seconds() {
		t.Fatalf("remaining after 5 more active minutes = %v, want 900s", view.RemainingSeconds)
	}
}

func TestProgressIdempotentThroughEngine(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(4, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.SubmitResponse(ctx, sess.ID, sess.Questions[0].ID, goodAnswer, 30); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	a, err := e.Progress(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	b, err := e.Progress(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Progress again: %v", err)
	}
	if a.Progress != b.Progress || a.Status != b.Status {
		t.Fatalf("Progress not idempotent: %+v vs %+v", a, b)
	}
	if a.Progress.Completed != 1 || a.Progress.Total != 4 || a.Progress.Percentage != 25 {
		t.Fatalf("progress = %+v, want 1/4 (25%%)", a.Progress)
	}
}

func TestCompleteTwice(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(3, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	summary, err := e.Complete(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if summary.QuestionsAsked != 3 || summary.Answered != 0 {
		t.Fatalf("summary = %+v, want 3 asked, 0 answered", summary)
	}

	if _, err := e.Complete(ctx, sess.ID); !errs.IsInvalidState(err) {
		t.Fatalf("second Complete error = %v, want InvalidStateError", err)
	}
	// The retry must not leave an inert timer entry behind.
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after repeated complete, want 0", activeCount(e))
	}
}

func TestCompleteFromPausedThroughEngine(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Pause(ctx, sess.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := e.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete from paused: %v", err)
	}

	stored, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != model.SessionStatusCompleted {
		t.Fatalf("stored status = %s, want COMPLETED", stored.Status)
	}
}

func TestCompletionHookPanicIsContained(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(1, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	ran := false
	e.OnCompletion(func(context.Context, *model.Session, *model.SessionSummary) {
		panic("hook exploded")
	})
	e.OnCompletion(func(context.Context, *model.Session, *model.SessionSummary) {
		ran = true
	})

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete with panicking hook: %v", err)
	}
	if !ran {
		t.Fatal("hook after the panicking one did not run")
	}
}

func TestUnknownSessionReleasesEntry(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{})
	ctx := context.Background()
	ghost := uuid.New()

	if _, err := e.SubmitResponse(ctx, ghost, uuid.New(), "hi", 1); !errs.IsNotFound(err) {
		t.Fatalf("submit to unknown session = %v, want NotFoundError", err)
	}
	if _, err := e.Pause(ctx, ghost); !errs.IsNotFound(err) {
		t.Fatalf("pause unknown session = %v, want NotFoundError", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after unknown-id calls, want 0", activeCount(e))
	}
}

func TestCompletedSessionMutationsReleaseEntry(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after complete, want 0", activeCount(e))
	}

	if _, err := e.SubmitResponse(ctx, sess.ID, uuid.New(), "late answer", 1); !errs.IsInvalidState(err) {
		t.Fatalf("submit to completed session = %v, want InvalidStateError", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after late submit, want 0", activeCount(e))
	}

	if _, err := e.Pause(ctx, sess.ID); !errs.IsInvalidState(err) {
		t.Fatalf("pause completed session = %v, want InvalidStateError", err)
	}
	if _, err := e.Resume(ctx, sess.ID); !errs.IsInvalidState(err) {
		t.Fatalf("resume completed session = %v, want InvalidStateError", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after completed-session mutations, want 0", activeCount(e))
	}
}

func TestSummaryRequiresCompletion(t *testing.T) {
	e, _, _ := newTestEngine(&fakeSource{questions: makeQuestions(2, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Summary(ctx, sess.ID); !errs.IsInvalidState(err) {
		t.Fatalf("summary of active session = %v, want InvalidStateError", err)
	}

	if _, err := e.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	summary, err := e.Summary(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.SessionID != sess.ID.String() || summary.UserID != "user-1" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestDeleteCancelsTimers(t *testing.T) {
	e, store, _ := newTestEngine(&fakeSource{questions: makeQuestions(6, model.QuestionTypeBehavioral)})
	ctx := context.Background()

	sess, err := e.Start(ctx, "user-1", model.SessionConfig{
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if activeCount(e) != 0 {
		t.Fatalf("active entries = %d after delete, want 0", activeCount(e))
	}
	if _, err := store.GetSession(ctx, sess.ID); !errs.IsNotFound(err) {
		t.Fatalf("deleted session still readable: %v", err)
	}
}
