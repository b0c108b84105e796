package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

var errHistoryDown = errs.Dependency("history", context.DeadlineExceeded)

func flatAnalysis(score float64) *model.ResponseAnalysis {
	return &model.ResponseAnalysis{
		Clarity:       score,
		Relevance:     score,
		Depth:         score,
		Communication: score,
		Completeness:  score,
		OverallScore:  score,
	}
}

// scoredSession builds a completed session whose responses all carry a
// flat analysis with the given per-response scores, oldest first.
func scoredSession(qType model.QuestionType, scores ...float64) *model.Session {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := model.NewSession("user-1", model.SessionConfig{Difficulty: model.DifficultyMedium}, now)
	for _, score := range scores {
		q := model.Question{ID: uuid.New(), Type: qType, Category: model.CategoryProblemSolving, Difficulty: model.DifficultyMedium}
		s.Questions = append(s.Questions, q)
		s.Responses = append(s.Responses, model.Response{
			ID:         uuid.New(),
			QuestionID: q.ID,
			SessionID:  s.ID,
			Text:       "an answer",
			Analysis:   flatAnalysis(score),
		})
	}
	return s
}

func newTestTracker(h HistoryStore) *PerformanceTracker {
	return NewPerformanceTracker(h, zerolog.Nop())
}

func TestRecencyWeightedAverage(t *testing.T) {
	if got := recencyWeightedAverage(nil); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
	if got := recencyWeightedAverage([]float64{80}); got != 80 {
		t.Fatalf("single = %v, want 80", got)
	}

	// (1*50 + 1.1*100) / 2.1
	got := recencyWeightedAverage([]float64{50, 100})
	want := 160.0 / 2.1
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("two values = %v, want %v", got, want)
	}
	if got <= 75 {
		t.Fatalf("recency weighting should pull above the plain mean, got %v", got)
	}
}

func TestRegressionSlope(t *testing.T) {
	if got := regressionSlope([]float64{0, 2, 4}); math.Abs(got-2) > 1e-9 {
		t.Fatalf("slope = %v, want 2", got)
	}
	if got := regressionSlope([]float64{5, 5, 5}); got != 0 {
		t.Fatalf("flat slope = %v, want 0", got)
	}
	if got := regressionSlope([]float64{7}); got != 0 {
		t.Fatalf("single-point slope = %v, want 0", got)
	}
}

func TestCalculateSessionScore(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})
	s := scoredSession(model.QuestionTypeTechnical, 40, 90)

	score, err := tracker.CalculateSessionScore(context.Background(), s)
	if err != nil {
		t.Fatalf("CalculateSessionScore: %v", err)
	}

	// All inputs are flat, so every dimension lands on the recency
	// weighted average of [40, 90].
	want := math.Round((40+1.1*90)/2.1*10) / 10
	for _, d := range score.Dimensions {
		if d.Score != want {
			t.Errorf("dimension %s = %v, want %v", d.Name, d.Score, want)
		}
		if d.Trend != model.TrendStable {
			t.Errorf("dimension %s trend = %s, want STABLE with no history", d.Name, d.Trend)
		}
	}
	if len(score.Dimensions) != len(model.AllDimensions) {
		t.Fatalf("dimensions = %d, want %d", len(score.Dimensions), len(model.AllDimensions))
	}
	if score.OverallScore != math.Round(want) {
		t.Fatalf("overall = %v, want %v", score.OverallScore, math.Round(want))
	}
	if score.Improvement != 0 {
		t.Fatalf("improvement with no history = %v, want 0", score.Improvement)
	}
}

func TestCalculateSessionScoreNilSession(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})
	if _, err := tracker.CalculateSessionScore(context.Background(), nil); !errs.IsValidation(err) {
		t.Fatalf("nil session error = %v, want ValidationError", err)
	}
}

func TestDimensionTrend(t *testing.T) {
	ctx := context.Background()

	// History arrives newest first.
	improving := newTestTracker(&fakeHistory{dims: map[string][]float64{
		model.DimClarity: {60, 55, 50},
	}})
	if got := improving.dimensionTrend(ctx, "u", model.DimClarity, 70); got != model.TrendImproving {
		t.Fatalf("trend = %s, want IMPROVING", got)
	}

	declining := newTestTracker(&fakeHistory{dims: map[string][]float64{
		model.DimClarity: {50, 55, 60},
	}})
	if got := declining.dimensionTrend(ctx, "u", model.DimClarity, 40); got != model.TrendDeclining {
		t.Fatalf("trend = %s, want DECLINING", got)
	}

	flat := newTestTracker(&fakeHistory{dims: map[string][]float64{
		model.DimClarity: {60, 60, 60},
	}})
	if got := flat.dimensionTrend(ctx, "u", model.DimClarity, 61); got != model.TrendStable {
		t.Fatalf("trend = %s, want STABLE", got)
	}

	// Storage failures degrade to stable, never error.
	down := newTestTracker(&fakeHistory{err: errHistoryDown})
	if got := down.dimensionTrend(ctx, "u", model.DimClarity, 90); got != model.TrendStable {
		t.Fatalf("trend with history down = %s, want STABLE", got)
	}
}

func TestImprovement(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{overalls: []float64{70, 60, 50}})
	if got := tracker.improvement(context.Background(), "u", 80); got != 20 {
		t.Fatalf("improvement = %v, want 20", got)
	}

	down := newTestTracker(&fakeHistory{err: errHistoryDown})
	if got := down.improvement(context.Background(), "u", 80); got != 0 {
		t.Fatalf("improvement with history down = %v, want 0", got)
	}
}

func TestRanking(t *testing.T) {
	cases := []struct {
		difficulty model.Difficulty
		overall    float64
		want       string
	}{
		{model.DifficultyEasy, 44, "10th"},
		{model.DifficultyEasy, 45, "25th"},
		{model.DifficultyEasy, 82, "90th"},
		{model.DifficultyMedium, 70, "75th"},
		{model.DifficultyHard, 58, "75th"},
		{"", 45, "25th"}, // unknown difficulty uses the medium tier
	}
	for _, c := range cases {
		if got := ranking(c.difficulty, c.overall); got != c.want {
			t.Errorf("ranking(%s, %v) = %s, want %s", c.difficulty, c.overall, got, c.want)
		}
	}
}

func TestRecommendationsCapped(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})

	// Three questions of one type, overrun duration, every dimension
	// weak and one declining: more candidates than the cap.
	s := scoredSession(model.QuestionTypeTechnical, 30, 30, 30)
	s.Config.DurationMinutes = 30
	end := s.StartedAt.Add(45 * time.Minute)
	s.EndedAt = &end
	s.Status = model.SessionStatusCompleted

	dims := make([]model.DimensionScore, 0, len(model.AllDimensions))
	for _, name := range model.AllDimensions {
		dims = append(dims, model.DimensionScore{Name: name, Score: 30, Trend: model.TrendStable})
	}
	dims[0].Trend = model.TrendDeclining

	recs := tracker.recommendations(s, dims)
	if len(recs) != 5 {
		t.Fatalf("recommendations = %d (%v), want capped at 5", len(recs), recs)
	}
}

func TestRecommendationsWeakestFirst(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})
	s := scoredSession(model.QuestionTypeTechnical, 50)

	dims := []model.DimensionScore{
		{Name: model.DimClarity, Score: 55, Trend: model.TrendStable},
		{Name: model.DimRelevance, Score: 35, Trend: model.TrendStable},
		{Name: model.DimDepth, Score: 80, Trend: model.TrendStable},
	}
	recs := tracker.recommendations(s, dims)
	if len(recs) < 2 {
		t.Fatalf("recommendations = %v, want the two weak dimensions", recs)
	}
	// Relevance (35) is weaker than clarity (55), so its advice leads,
	// drawn from the high-severity tier.
	if recs[0] != dimensionAdvice[model.DimRelevance][2] {
		t.Fatalf("first rec = %q, want high-severity relevance advice", recs[0])
	}
	if recs[1] != dimensionAdvice[model.DimClarity][0] {
		t.Fatalf("second rec = %q, want low-severity clarity advice", recs[1])
	}
}

func TestProgressAnalytics(t *testing.T) {
	store := newMemSessionStore()
	base := time.Now().AddDate(0, 0, -6)
	for i, overall := range []float64{50, 60, 70} {
		s := scoredSession(model.QuestionTypeTechnical, overall)
		s.StartedAt = base.AddDate(0, 0, i)
		s.Analysis = &model.PerformanceScore{
			OverallScore: overall,
			Dimensions: []model.DimensionScore{
				{Name: model.DimClarity, Score: overall},
			},
		}
		end := s.StartedAt.Add(20 * time.Minute)
		s.EndedAt = &end
		s.Status = model.SessionStatusCompleted
		if err := store.SaveSession(context.Background(), s); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	tracker := newTestTracker(&fakeHistory{})
	got, err := tracker.ProgressAnalytics(context.Background(), store, "user-1", model.TimeframeWeek)
	if err != nil {
		t.Fatalf("ProgressAnalytics: %v", err)
	}

	if got.TotalSessions != 3 {
		t.Fatalf("total = %d, want 3", got.TotalSessions)
	}
	if got.AverageScore != 60 || got.HighScore != 70 || got.LowScore != 50 {
		t.Fatalf("scores = avg %v high %v low %v", got.AverageScore, got.HighScore, got.LowScore)
	}
	// (70-50)/50 * 100 = 40% total change over 2 steps.
	if got.ImprovementRate != 20 {
		t.Fatalf("improvement rate = %v, want 20", got.ImprovementRate)
	}
	// stddev of [50,60,70] is ~8.16, consistency = 100 - 2*8.16.
	if math.Abs(got.ConsistencyScore-83.7) > 0.05 {
		t.Fatalf("consistency = %v, want ~83.7", got.ConsistencyScore)
	}
	if math.Abs(got.DimensionTrends[model.DimClarity]-10) > 1e-9 {
		t.Fatalf("clarity trend = %v, want 10", got.DimensionTrends[model.DimClarity])
	}
}

func TestProgressAnalyticsEmpty(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})
	got, err := tracker.ProgressAnalytics(context.Background(), newMemSessionStore(), "nobody", model.TimeframeAll)
	if err != nil {
		t.Fatalf("ProgressAnalytics: %v", err)
	}
	if got.TotalSessions != 0 || got.AverageScore != 0 {
		t.Fatalf("empty analytics = %+v", got)
	}
}

func TestProgressAnalyticsBadTimeframe(t *testing.T) {
	tracker := newTestTracker(&fakeHistory{})
	_, err := tracker.ProgressAnalytics(context.Background(), newMemSessionStore(), "u", "FORTNIGHT")
	if !errs.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
