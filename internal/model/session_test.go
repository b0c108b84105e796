package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/errs"
)

func testSession(t *testing.T, questions int) *Session {
	t.Helper()
	s := NewSession("user-1", SessionConfig{
		Categories:      []QuestionCategory{CategoryLeadership},
		Difficulty:      DifficultyMedium,
		DurationMinutes: 30,
	}, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	for i := 0; i < questions; i++ {
		q := Question{
			ID:         uuid.New(),
			Type:       QuestionTypeBehavioral,
			Category:   CategoryLeadership,
			Text:       "Tell me about a time you led a team.",
			Difficulty: DifficultyMedium,
		}
		if err := s.AddQuestion(q); err != nil {
			t.Fatalf("AddQuestion: %v", err)
		}
	}
	return s
}

func answer(s *Session, questionID uuid.UUID) Response {
	return Response{
		ID:                  uuid.New(),
		QuestionID:          questionID,
		SessionID:           s.ID,
		Text:                "I led the migration and reduced costs by 30%.",
		Timestamp:           time.Now(),
		ResponseTimeSeconds: 42,
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testSession(t, 2)
	if s.Status != SessionStatusActive {
		t.Fatalf("new session status = %s, want ACTIVE", s.Status)
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if s.Status != SessionStatusPaused {
		t.Fatalf("status after pause = %s", s.Status)
	}

	// Pausing a paused session is invalid.
	if err := s.Pause(); !errs.IsInvalidState(err) {
		t.Fatalf("double pause error = %v, want InvalidStateError", err)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := s.Resume(); !errs.IsInvalidState(err) {
		t.Fatalf("double resume error = %v, want InvalidStateError", err)
	}

	now := time.Now()
	if err := s.Complete(now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.EndedAt == nil || !s.EndedAt.Equal(now) {
		t.Fatalf("EndedAt = %v, want %v", s.EndedAt, now)
	}

	// COMPLETED is terminal.
	if err := s.Pause(); !errs.IsInvalidState(err) {
		t.Errorf("pause after complete = %v, want InvalidStateError", err)
	}
	if err := s.Resume(); !errs.IsInvalidState(err) {
		t.Errorf("resume after complete = %v, want InvalidStateError", err)
	}
	if err := s.Complete(now); !errs.IsInvalidState(err) {
		t.Errorf("complete after complete = %v, want InvalidStateError", err)
	}
	if err := s.AddQuestion(Question{ID: uuid.New()}); !errs.IsInvalidState(err) {
		t.Errorf("add question after complete = %v, want InvalidStateError", err)
	}
}

func TestCompleteFromPaused(t *testing.T) {
	s := testSession(t, 1)
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Complete(time.Now()); err != nil {
		t.Fatalf("Complete from paused: %v", err)
	}
	if s.Status != SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", s.Status)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	end := time.Now()
	s := &Session{
		ID:     uuid.New(),
		UserID: "  ",
		Config: SessionConfig{
			Difficulty:      "IMPOSSIBLE",
			DurationMinutes: 3,
			Categories:      []QuestionCategory{"UNKNOWN_CAT"},
		},
		Status:    SessionStatusActive,
		Responses: []Response{{ID: uuid.New()}},
		EndedAt:   &end, // set while not completed
	}

	err := s.Validate()
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate returned %T, want *errs.ValidationError", err)
	}
	// user_id, duration, difficulty, category, responses>questions, ended_at.
	if len(ve.Violations) != 6 {
		t.Fatalf("violations = %d (%v), want 6", len(ve.Violations), ve.Violations)
	}
}

func TestValidateOK(t *testing.T) {
	s := testSession(t, 1)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Untimed sessions are valid too.
	s.Config.DurationMinutes = 0
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate untimed: %v", err)
	}
}

func TestAddResponseOrdering(t *testing.T) {
	s := testSession(t, 2)

	// Answering the second question first is a mismatch and must leave
	// the aggregate untouched.
	wrong := answer(s, s.Questions[1].ID)
	err := s.AddResponse(wrong)
	if !errs.IsQuestionMismatch(err) {
		t.Fatalf("out-of-order response error = %v, want QuestionMismatchError", err)
	}
	if len(s.Responses) != 0 {
		t.Fatalf("responses after failed add = %d, want 0", len(s.Responses))
	}

	if err := s.AddResponse(answer(s, s.Questions[0].ID)); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}
	if err := s.AddResponse(answer(s, s.Questions[1].ID)); err != nil {
		t.Fatalf("AddResponse second: %v", err)
	}
	if _, more := s.CurrentQuestion(); more {
		t.Fatal("CurrentQuestion reports more after all answered")
	}

	// No question left to answer.
	err = s.AddResponse(answer(s, s.Questions[1].ID))
	if !errs.IsValidation(err) {
		t.Fatalf("overflow response error = %v, want ValidationError", err)
	}
}

func TestAddResponseWhilePaused(t *testing.T) {
	s := testSession(t, 1)
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	err := s.AddResponse(answer(s, s.Questions[0].ID))
	if !errs.IsInvalidState(err) {
		t.Fatalf("response while paused = %v, want InvalidStateError", err)
	}
	if len(s.Responses) != 0 {
		t.Fatalf("responses = %d, want 0", len(s.Responses))
	}
}

func TestAddResponseBounds(t *testing.T) {
	s := testSession(t, 1)

	r := answer(s, s.Questions[0].ID)
	r.ResponseTimeSeconds = MaxResponseSeconds + 1
	if err := s.AddResponse(r); !errs.IsValidation(err) {
		t.Fatalf("over-limit response time = %v, want ValidationError", err)
	}

	// Empty text is allowed; it scores zero instead of failing.
	r = answer(s, s.Questions[0].ID)
	r.Text = ""
	if err := s.AddResponse(r); err != nil {
		t.Fatalf("empty-text response: %v", err)
	}
}

func TestProgressIdempotent(t *testing.T) {
	s := testSession(t, 4)
	if err := s.AddResponse(answer(s, s.Questions[0].ID)); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}

	first := s.Progress()
	second := s.Progress()
	if first != second {
		t.Fatalf("Progress not idempotent: %+v vs %+v", first, second)
	}
	if first.Completed != 1 || first.Total != 4 || first.Percentage != 25 {
		t.Fatalf("Progress = %+v, want 1/4 (25%%)", first)
	}
}

func TestCurrentQuestionAdvances(t *testing.T) {
	s := testSession(t, 2)

	q, ok := s.CurrentQuestion()
	if !ok || q.ID != s.Questions[0].ID {
		t.Fatalf("current = %v, want first question", q)
	}
	if err := s.AddResponse(answer(s, q.ID)); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}
	q, ok = s.CurrentQuestion()
	if !ok || q.ID != s.Questions[1].ID {
		t.Fatalf("current after answer = %v, want second question", q)
	}
}

func TestSessionJSONRoundTrip(t *testing.T) {
	s := testSession(t, 2)
	if err := s.AddResponse(answer(s, s.Questions[0].ID)); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}
	if err := s.Complete(time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Session
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if back.ID != s.ID || back.UserID != s.UserID || back.Status != s.Status {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, s)
	}
	if len(back.Questions) != 2 || len(back.Responses) != 1 {
		t.Fatalf("round trip lost content: %d questions, %d responses", len(back.Questions), len(back.Responses))
	}
	if back.EndedAt == nil || !back.EndedAt.Equal(*s.EndedAt) {
		t.Fatalf("round trip EndedAt = %v, want %v", back.EndedAt, s.EndedAt)
	}
}

func TestConfigViolations(t *testing.T) {
	ok := SessionConfig{Difficulty: DifficultyHard, DurationMinutes: 60}
	if v := ok.Violations(); len(v) != 0 {
		t.Fatalf("violations = %v, want none", v)
	}

	bad := SessionConfig{Difficulty: "BRUTAL", DurationMinutes: 121, Categories: []QuestionCategory{"NOPE"}}
	if v := bad.Violations(); len(v) != 3 {
		t.Fatalf("violations = %v, want 3", v)
	}
}
