package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// missedGrace is how long past its scheduled time a session may sit
// before the sweep marks it MISSED.
const missedGrace = 15 * time.Minute

// sweepClaimLimit bounds how many due reminders one sweep dispatches.
const sweepClaimLimit = 100

// weeklySessionTarget is the practice frequency the recommendations
// nudge toward.
const weeklySessionTarget = 3

// PracticeScheduler owns everything outside a live session: future
// scheduled sessions and their reminders, the daily practice streak,
// and practice-habit recommendations.
type PracticeScheduler struct {
	schedules ScheduleStore
	streaks   StreakStore
	sessions  SessionStore
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewPracticeScheduler wires a scheduler. notifier may be nil; milestone
// and reminder notifications are then skipped.
func NewPracticeScheduler(
	schedules ScheduleStore,
	streaks StreakStore,
	sessions SessionStore,
	notifier Notifier,
	log zerolog.Logger,
) *PracticeScheduler {
	return &PracticeScheduler{
		schedules: schedules,
		streaks:   streaks,
		sessions:  sessions,
		notifier:  notifier,
		log:       log.With().Str("component", "practice_scheduler").Logger(),
		now:       time.Now,
	}
}

// Schedule books a future practice session and arms one reminder per
// configured lead time. Lead times that already lie in the past are
// silently skipped.
func (p *PracticeScheduler) Schedule(ctx context.Context, req model.ScheduleSessionRequest) (*model.ScheduledSession, error) {
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, errs.NewValidation([]string{"scheduled_at must be an RFC 3339 timestamp"})
	}
	now := p.now()
	if !at.After(now) {
		return nil, errs.NewValidation([]string{"scheduled_at must be in the future"})
	}

	cfg := model.SessionConfig{
		Categories:      model.CategoriesFromStrings(req.Categories),
		Difficulty:      model.Difficulty(req.Difficulty),
		DurationMinutes: req.DurationMinutes,
	}
	if violations := cfg.Violations(); len(violations) > 0 {
		return nil, errs.NewValidation(violations)
	}

	sched := &model.ScheduledSession{
		ID:          uuid.New(),
		UserID:      req.UserID,
		ScheduledAt: at,
		Config:      cfg,
		Reminders: model.ReminderSettings{
			Enabled:          req.RemindersEnabled,
			LeadTimesMinutes: req.LeadTimesMinutes,
		},
		Status: model.ScheduleStatusScheduled,
	}
	if err := p.schedules.CreateSchedule(ctx, sched); err != nil {
		return nil, errs.Dependency("create schedule", err)
	}
	if err := p.armReminders(ctx, sched, now); err != nil {
		return nil, err
	}

	p.log.Info().
		Str("schedule_id", sched.ID.String()).
		Str("user_id", sched.UserID).
		Time("scheduled_at", at).
		Msg("session scheduled")
	return sched, nil
}

// Reschedule moves a pending schedule to a new time and re-arms its
// reminders. Started, missed, and cancelled schedules cannot move.
func (p *PracticeScheduler) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (*model.ScheduledSession, error) {
	sched, err := p.schedules.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.Status != model.ScheduleStatusScheduled && sched.Status != model.ScheduleStatusReminded {
		return nil, errs.InvalidState("reschedule", string(sched.Status))
	}
	now := p.now()
	if !newTime.After(now) {
		return nil, errs.NewValidation([]string{"scheduled_at must be in the future"})
	}

	sched.ScheduledAt = newTime
	sched.Status = model.ScheduleStatusScheduled
	if err := p.schedules.UpdateSchedule(ctx, sched); err != nil {
		return nil, errs.Dependency("update schedule", err)
	}
	if err := p.armReminders(ctx, sched, now); err != nil {
		return nil, err
	}
	return sched, nil
}

// Cancel cancels a pending schedule and clears its reminders.
func (p *PracticeScheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	sched, err := p.schedules.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sched.Status == model.ScheduleStatusStarted || sched.Status == model.ScheduleStatusCancelled {
		return errs.InvalidState("cancel", string(sched.Status))
	}
	sched.Status = model.ScheduleStatusCancelled
	if err := p.schedules.UpdateSchedule(ctx, sched); err != nil {
		return errs.Dependency("update schedule", err)
	}
	if err := p.schedules.ClearReminders(ctx, id); err != nil {
		return errs.Dependency("clear reminders", err)
	}
	return nil
}

// MarkStarted flips a pending schedule to STARTED and drops its
// remaining reminders. Called when the user begins the session.
func (p *PracticeScheduler) MarkStarted(ctx context.Context, id uuid.UUID) error {
	sched, err := p.schedules.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sched.Status != model.ScheduleStatusScheduled && sched.Status != model.ScheduleStatusReminded {
		return errs.InvalidState("start", string(sched.Status))
	}
	sched.Status = model.ScheduleStatusStarted
	if err := p.schedules.UpdateSchedule(ctx, sched); err != nil {
		return errs.Dependency("update schedule", err)
	}
	if err := p.schedules.ClearReminders(ctx, id); err != nil {
		return errs.Dependency("clear reminders", err)
	}
	return nil
}

// Schedules lists a user's scheduled sessions.
func (p *PracticeScheduler) Schedules(ctx context.Context, userID string) ([]model.ScheduledSession, error) {
	out, err := p.schedules.ListUserSchedules(ctx, userID)
	if err != nil {
		return nil, errs.Dependency("list schedules", err)
	}
	return out, nil
}

func (p *PracticeScheduler) armReminders(ctx context.Context, sched *model.ScheduledSession, now time.Time) error {
	times := []time.Time{}
	if sched.Reminders.Enabled {
		for _, lead := range sched.Reminders.LeadTimesMinutes {
			at := sched.ScheduledAt.Add(-time.Duration(lead) * time.Minute)
			if at.After(now) {
				times = append(times, at)
			}
		}
	}
	if err := p.schedules.ReplaceReminders(ctx, sched.ID, times); err != nil {
		return errs.Dependency("arm reminders", err)
	}
	return nil
}

// SweepReminders dispatches due reminders and marks overdue schedules
// missed. Reminders are claimed before dispatch, so a crashed or
// repeated sweep never notifies twice; a claimed reminder whose
// notification fails is logged and dropped. Returns how many reminders
// were dispatched.
func (p *PracticeScheduler) SweepReminders(ctx context.Context) (int, error) {
	now := p.now()
	due, err := p.schedules.ClaimDueReminders(ctx, now, sweepClaimLimit)
	if err != nil {
		return 0, errs.Dependency("claim reminders", err)
	}

	sent := 0
	for _, r := range due {
		if err := p.dispatchReminder(ctx, r); err != nil {
			p.log.Warn().Err(err).
				Int64("reminder_id", r.ID).
				Str("user_id", r.UserID).
				Msg("reminder dispatch failed")
			continue
		}
		sent++
	}

	missed, err := p.schedules.MarkMissed(ctx, now.Add(-missedGrace))
	if err != nil {
		return sent, errs.Dependency("mark missed", err)
	}
	if missed > 0 {
		p.log.Info().Int64("count", missed).Msg("schedules marked missed")
	}
	return sent, nil
}

func (p *PracticeScheduler) dispatchReminder(ctx context.Context, r model.Reminder) error {
	sched, err := p.schedules.GetSchedule(ctx, r.ScheduleID)
	if err != nil {
		return err
	}
	if sched.Status == model.ScheduleStatusCancelled || sched.Status == model.ScheduleStatusStarted {
		return nil
	}
	if sched.Status == model.ScheduleStatusScheduled {
		sched.Status = model.ScheduleStatusReminded
		if err := p.schedules.UpdateSchedule(ctx, sched); err != nil {
			return err
		}
	}
	if p.notifier == nil {
		return nil
	}
	return p.notifier.Notify(ctx, Notification{
		UserID:   r.UserID,
		Title:    "Practice session coming up",
		Message:  fmt.Sprintf("Your practice session starts at %s.", sched.ScheduledAt.Format("15:04")),
		Priority: "normal",
	})
}

// HandleCompletion is the engine completion hook: it records the
// practice day on the user's streak. Streak failures are logged and
// swallowed so they never disturb session completion.
func (p *PracticeScheduler) HandleCompletion(ctx context.Context, s *model.Session, _ *model.SessionSummary) {
	if err := p.RecordPractice(ctx, s.UserID, p.now()); err != nil {
		p.log.Warn().Err(err).Str("user_id", s.UserID).Msg("streak update failed")
	}
}

// RecordPractice updates the user's streak for a completed session at
// the given time. Days compare by UTC calendar date: a second session
// on the same day only bumps the session total, a one-day gap extends
// the streak, anything longer restarts it at one. Crossing a milestone
// length fires a one-time notification.
func (p *PracticeScheduler) RecordPractice(ctx context.Context, userID string, at time.Time) error {
	day := calendarDay(at)

	streak, err := p.streaks.GetStreak(ctx, userID)
	switch {
	case errs.IsNotFound(err):
		streak = &model.PracticeStreak{UserID: userID}
	case err != nil:
		return errs.Dependency("get streak", err)
	}

	crossed := false
	if streak.TotalSessions == 0 {
		streak.CurrentStreak = 1
		streak.LongestStreak = 1
		streak.StreakStartDate = day
		streak.LastPracticeDate = day
		streak.TotalSessions = 1
		crossed = true
	} else {
		switch gap := daysBetween(calendarDay(streak.LastPracticeDate), day); {
		case gap <= 0:
			streak.TotalSessions++
		case gap == 1:
			streak.CurrentStreak++
			if streak.CurrentStreak > streak.LongestStreak {
				streak.LongestStreak = streak.CurrentStreak
			}
			streak.LastPracticeDate = day
			streak.TotalSessions++
			crossed = true
		default:
			streak.CurrentStreak = 1
			streak.StreakStartDate = day
			streak.LastPracticeDate = day
			streak.TotalSessions++
			crossed = true
		}
	}

	if err := p.streaks.UpsertStreak(ctx, streak); err != nil {
		return errs.Dependency("save streak", err)
	}

	// The streak grows by at most one per day, so equality with a
	// milestone length fires exactly once per crossing.
	if crossed && p.notifier != nil && isMilestone(streak.CurrentStreak) {
		n := Notification{
			UserID:   userID,
			Title:    "Streak milestone",
			Message:  fmt.Sprintf("%d days of practice in a row. Keep it going!", streak.CurrentStreak),
			Priority: "high",
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.log.Warn().Err(err).Str("user_id", userID).Msg("milestone notification failed")
		}
	}
	return nil
}

// Streak returns the user's streak as of now. A streak broken by more
// than a one-day gap reads as zero without being persisted; the stored
// row is only rewritten on the next completed session.
func (p *PracticeScheduler) Streak(ctx context.Context, userID string) (*model.PracticeStreak, error) {
	streak, err := p.streaks.GetStreak(ctx, userID)
	if errs.IsNotFound(err) {
		return &model.PracticeStreak{UserID: userID}, nil
	}
	if err != nil {
		return nil, errs.Dependency("get streak", err)
	}
	if daysBetween(calendarDay(streak.LastPracticeDate), calendarDay(p.now())) > 1 {
		view := *streak
		view.CurrentStreak = 0
		return &view, nil
	}
	return streak, nil
}

// Recommendations builds up to five practice-habit nudges from the
// user's recent completed sessions, most important first.
func (p *PracticeScheduler) Recommendations(ctx context.Context, userID string) ([]model.PracticeRecommendation, error) {
	now := p.now()
	recent, err := p.sessions.QuerySessions(ctx, SessionQuery{
		UserID: userID,
		Status: model.SessionStatusCompleted,
		From:   now.AddDate(0, -1, 0),
	})
	if err != nil {
		return nil, errs.Dependency("query sessions", err)
	}

	recs := []model.PracticeRecommendation{}

	weekCount := 0
	for _, s := range recent {
		if s.StartedAt.After(now.AddDate(0, 0, -7)) {
			weekCount++
		}
	}
	if weekCount < weeklySessionTarget {
		recs = append(recs, model.PracticeRecommendation{
			Priority: 1,
			Kind:     "frequency",
			Message:  fmt.Sprintf("You practiced %d time(s) this week — aim for at least %d sessions.", weekCount, weeklySessionTarget),
		})
	}

	if streak, err := p.Streak(ctx, userID); err == nil {
		if streak.CurrentStreak == 0 && streak.LongestStreak >= 3 {
			recs = append(recs, model.PracticeRecommendation{
				Priority: 2,
				Kind:     "streak",
				Message:  fmt.Sprintf("Your %d-day streak lapsed — a session today starts a new one.", streak.LongestStreak),
			})
		}
	} else {
		p.log.Warn().Err(err).Str("user_id", userID).Msg("streak unavailable for recommendations")
	}

	if cat, score, ok := weakestCategory(recent); ok {
		recs = append(recs, model.PracticeRecommendation{
			Priority: 3,
			Kind:     "focus_area",
			Message:  fmt.Sprintf("Your %s answers average %.0f — schedule a session focused on that area.", categoryLabel(cat), score),
		})
	}

	if avg, ok := rollingOverall(recent, 5); ok {
		switch {
		case avg >= 80:
			recs = append(recs, model.PracticeRecommendation{
				Priority: 4,
				Kind:     "difficulty",
				Message:  "You are averaging above 80 — step up to a harder difficulty.",
			})
		case avg < 60:
			recs = append(recs, model.PracticeRecommendation{
				Priority: 4,
				Kind:     "difficulty",
				Message:  "Scores are below 60 — drop the difficulty and rebuild confidence.",
			})
		}
	}

	if hour, ok := favoriteHour(recent); ok {
		recs = append(recs, model.PracticeRecommendation{
			Priority: 5,
			Kind:     "timing",
			Message:  fmt.Sprintf("You practice best around %02d:00 — schedule your next session then.", hour),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs, nil
}

// weakestCategory averages scored answers per question category and
// returns the lowest category under 70. A category only counts once it
// has answers from at least three sessions.
func weakestCategory(sessions []model.Session) (model.QuestionCategory, float64, bool) {
	sums := map[model.QuestionCategory]float64{}
	counts := map[model.QuestionCategory]int{}
	seen := map[model.QuestionCategory]map[uuid.UUID]struct{}{}
	for _, s := range sessions {
		byQuestion := make(map[uuid.UUID]model.QuestionCategory, len(s.Questions))
		for _, q := range s.Questions {
			byQuestion[q.ID] = q.Category
		}
		for _, r := range s.Responses {
			if r.Analysis == nil {
				continue
			}
			cat, ok := byQuestion[r.QuestionID]
			if !ok {
				continue
			}
			sums[cat] += r.Analysis.OverallScore
			counts[cat]++
			if seen[cat] == nil {
				seen[cat] = map[uuid.UUID]struct{}{}
			}
			seen[cat][s.ID] = struct{}{}
		}
	}

	names := make([]string, 0, len(counts))
	for cat := range counts {
		names = append(names, string(cat))
	}
	sort.Strings(names)

	var best model.QuestionCategory
	bestScore := 0.0
	for _, name := range names {
		cat := model.QuestionCategory(name)
		if len(seen[cat]) < 3 {
			continue
		}
		avg := sums[cat] / float64(counts[cat])
		if avg < 70 && (best == "" || avg < bestScore) {
			best, bestScore = cat, avg
		}
	}
	return best, bestScore, best != ""
}

// categoryLabel renders a category constant for user-facing text.
func categoryLabel(c model.QuestionCategory) string {
	return strings.ReplaceAll(strings.ToLower(string(c)), "_", " ")
}

// rollingOverall averages the overall score of up to the n most recent
// analyzed sessions. Sessions arrive newest first.
func rollingOverall(sessions []model.Session, n int) (float64, bool) {
	sum, count := 0.0, 0
	for _, s := range sessions {
		if s.Analysis == nil {
			continue
		}
		sum += s.Analysis.OverallScore
		count++
		if count == n {
			break
		}
	}
	if count < 3 {
		return 0, false
	}
	return sum / float64(count), true
}

// favoriteHour is the rounded average hour-of-day the user starts
// sessions at, given at least three sessions.
func favoriteHour(sessions []model.Session) (int, bool) {
	if len(sessions) < 3 {
		return 0, false
	}
	sum := 0
	for _, s := range sessions {
		sum += s.StartedAt.Hour()
	}
	return int(math.Round(float64(sum)/float64(len(sessions)))) % 24, true
}

func isMilestone(n int) bool {
	for _, m := range model.StreakMilestones {
		if n == m {
			return true
		}
	}
	return false
}

func calendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
