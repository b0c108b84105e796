package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/errs"
)

// SessionStatus enumerates practice session states. ACTIVE and PAUSED
// flip back and forth; COMPLETED is terminal.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusPaused    SessionStatus = "PAUSED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// Session duration bounds in minutes. Zero means untimed.
const (
	MinSessionMinutes = 5
	MaxSessionMinutes = 120
)

// MaxResponseSeconds bounds a single response time.
const MaxResponseSeconds = 3600

// SessionConfig describes what a practice session should cover.
type SessionConfig struct {
	Categories      []QuestionCategory `json:"categories"`
	Difficulty      Difficulty         `json:"difficulty"`
	DurationMinutes int                `json:"duration_minutes"`
	FocusAreas      []string           `json:"focus_areas,omitempty"`
}

// Violations lists every invalid field of the config, empty when ok.
func (c SessionConfig) Violations() []string {
	var violations []string
	if c.DurationMinutes != 0 &&
		(c.DurationMinutes < MinSessionMinutes || c.DurationMinutes > MaxSessionMinutes) {
		violations = append(violations, fmt.Sprintf(
			"duration_minutes must be 0 (untimed) or between %d and %d", MinSessionMinutes, MaxSessionMinutes))
	}
	if c.Difficulty != "" && !ValidDifficulty(c.Difficulty) {
		violations = append(violations, fmt.Sprintf("difficulty %q is not one of EASY, MEDIUM, HARD", c.Difficulty))
	}
	for _, cat := range c.Categories {
		if !ValidCategory(cat) {
			violations = append(violations, fmt.Sprintf("category %q is unknown", cat))
		}
	}
	return violations
}

// CategoriesFromStrings converts request payload categories.
func CategoriesFromStrings(in []string) []QuestionCategory {
	if len(in) == 0 {
		return nil
	}
	out := make([]QuestionCategory, 0, len(in))
	for _, s := range in {
		out = append(out, QuestionCategory(s))
	}
	return out
}

// Session is the aggregate for one timed practice interview: an ordered
// question/response sequence plus a rolling analysis snapshot. The
// session engine is its sole mutator; once completed it is archived and
// never mutated again.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id"`
	Config    SessionConfig     `json:"config"`
	Questions []Question        `json:"questions"`
	Responses []Response        `json:"responses"`
	Analysis  *PerformanceScore `json:"analysis,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	Status    SessionStatus     `json:"status"`
}

// NewSession creates an active session with no questions or responses.
func NewSession(userID string, cfg SessionConfig, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Config:    cfg,
		StartedAt: now,
		Status:    SessionStatusActive,
	}
}

// SessionProgress reports how far through its questions a session is.
type SessionProgress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Validate collects every violated invariant and returns them as one
// ValidationError, or nil when the session is well-formed.
func (s *Session) Validate() error {
	var violations []string

	if strings.TrimSpace(s.UserID) == "" {
		violations = append(violations, "user_id is required")
	}
	violations = append(violations, s.Config.Violations()...)
	switch s.Status {
	case SessionStatusActive, SessionStatusPaused, SessionStatusCompleted:
	default:
		violations = append(violations, fmt.Sprintf("status %q is unknown", s.Status))
	}
	if len(s.Responses) > len(s.Questions) {
		violations = append(violations, "session has more responses than questions")
	}
	if (s.EndedAt != nil) != (s.Status == SessionStatusCompleted) {
		violations = append(violations, "ended_at must be set exactly when the session is completed")
	}

	return errs.NewValidation(violations)
}

// validateResponse collects every problem with a candidate response.
func (s *Session) validateResponse(r Response) []string {
	// Empty answer text is allowed; it scores zero rather than failing.
	var violations []string
	if r.QuestionID == uuid.Nil {
		violations = append(violations, "response question_id is required")
	}
	if r.ResponseTimeSeconds < 0 || r.ResponseTimeSeconds > MaxResponseSeconds {
		violations = append(violations, fmt.Sprintf("response_time_seconds must be between 0 and %d", MaxResponseSeconds))
	}
	return violations
}

// AddQuestion appends a question to the session's ordered list.
func (s *Session) AddQuestion(q Question) error {
	if s.Status == SessionStatusCompleted {
		return errs.InvalidState("add a question to", string(s.Status))
	}
	s.Questions = append(s.Questions, q)
	return nil
}

// AddResponse appends a scored response. The session must be active and
// the response must target the current expected question. On any error
// the session is left unchanged.
func (s *Session) AddResponse(r Response) error {
	if s.Status == SessionStatusCompleted {
		return errs.InvalidState("answer", string(s.Status))
	}
	if s.Status != SessionStatusActive {
		return errs.InvalidState("answer", string(s.Status))
	}
	current, ok := s.CurrentQuestion()
	if !ok {
		return errs.NewValidation([]string{"all session questions are already answered"})
	}
	if r.QuestionID != current.ID {
		return &errs.QuestionMismatchError{Expected: current.ID.String(), Got: r.QuestionID.String()}
	}
	if violations := s.validateResponse(r); len(violations) > 0 {
		return errs.NewValidation(violations)
	}
	s.Responses = append(s.Responses, r)
	return nil
}

// Pause moves an active session to paused.
func (s *Session) Pause() error {
	if s.Status != SessionStatusActive {
		return errs.InvalidState("pause", string(s.Status))
	}
	s.Status = SessionStatusPaused
	return nil
}

// Resume moves a paused session back to active.
func (s *Session) Resume() error {
	if s.Status != SessionStatusPaused {
		return errs.InvalidState("resume", string(s.Status))
	}
	s.Status = SessionStatusActive
	return nil
}

// Complete finalizes the session from active or paused and stamps EndedAt.
func (s *Session) Complete(now time.Time) error {
	if s.Status == SessionStatusCompleted {
		return errs.InvalidState("complete", string(s.Status))
	}
	s.Status = SessionStatusCompleted
	end := now
	s.EndedAt = &end
	return nil
}

// CurrentQuestion returns the question awaiting an answer, or false when
// every question has been answered.
func (s *Session) CurrentQuestion() (*Question, bool) {
	idx := len(s.Responses)
	if idx >= len(s.Questions) {
		return nil, false
	}
	return &s.Questions[idx], true
}

// Progress reports answered/total counts. Repeated calls without
// mutation return identical results.
func (s *Session) Progress() SessionProgress {
	total := len(s.Questions)
	done := len(s.Responses)
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	return SessionProgress{Completed: done, Total: total, Percentage: pct}
}

// ActiveDuration returns the total active time of a completed session.
// For running sessions it returns the wall-clock span so far.
func (s *Session) ActiveDuration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// StartSessionRequest is the payload for starting a practice session.
type StartSessionRequest struct {
	UserID          string   `json:"user_id" binding:"required,min=1,max=120"`
	Categories      []string `json:"categories" binding:"omitempty,dive,min=1"`
	Difficulty      string   `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	DurationMinutes int      `json:"duration_minutes" binding:"min=0,max=120"`
	FocusAreas      []string `json:"focus_areas" binding:"omitempty,dive,min=1,max=120"`
}
