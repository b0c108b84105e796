package service

import (
	"context"
	"math"
	"time"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// ProgressAnalytics summarizes a user's completed sessions within the
// timeframe: totals, score spread, improvement rate, consistency, and
// per-dimension trend slopes.
func (t *PerformanceTracker) ProgressAnalytics(ctx context.Context, sessions SessionStore, userID string, timeframe model.Timeframe) (*model.ProgressAnalytics, error) {
	now := time.Now()
	var from time.Time
	switch timeframe {
	case model.TimeframeWeek:
		from = now.AddDate(0, 0, -7)
	case model.TimeframeMonth:
		from = now.AddDate(0, -1, 0)
	case model.TimeframeAll, "":
		timeframe = model.TimeframeAll
	default:
		return nil, errs.NewValidation([]string{"timeframe must be WEEK, MONTH, or ALL"})
	}

	found, err := sessions.QuerySessions(ctx, SessionQuery{
		UserID: userID,
		Status: model.SessionStatusCompleted,
		From:   from,
	})
	if err != nil {
		return nil, errs.Dependency("query sessions", err)
	}

	out := &model.ProgressAnalytics{
		Timeframe:       timeframe,
		DimensionTrends: map[string]float64{},
		Strengths:       []string{},
		Weaknesses:      []string{},
	}
	analyzed := make([]model.Session, 0, len(found))
	for _, s := range found {
		if s.Analysis != nil {
			analyzed = append(analyzed, s)
		}
	}
	out.TotalSessions = len(analyzed)
	if len(analyzed) == 0 {
		return out, nil
	}

	// QuerySessions returns newest first; walk oldest to newest.
	overalls := make([]float64, 0, len(analyzed))
	perDim := map[string][]float64{}
	for i := len(analyzed) - 1; i >= 0; i-- {
		a := analyzed[i].Analysis
		overalls = append(overalls, a.OverallScore)
		for _, d := range a.Dimensions {
			perDim[d.Name] = append(perDim[d.Name], d.Score)
		}
	}

	high, low, sum := overalls[0], overalls[0], 0.0
	for _, v := range overalls {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
		sum += v
	}
	mean := sum / float64(len(overalls))
	out.AverageScore = round1(mean)
	out.HighScore = high
	out.LowScore = low

	// Percent change per session between the first and last in window.
	if n := len(overalls); n > 1 && overalls[0] != 0 {
		totalChange := (overalls[n-1] - overalls[0]) / overalls[0] * 100
		out.ImprovementRate = round1(totalChange / float64(n-1))
	}

	out.ConsistencyScore = round1(math.Max(0, 100-2*stddev(overalls, mean)))

	for _, name := range model.AllDimensions {
		series := perDim[name]
		out.DimensionTrends[name] = round1(regressionSlope(series))
		if len(series) == 0 {
			continue
		}
		dimMean := 0.0
		for _, v := range series {
			dimMean += v
		}
		dimMean /= float64(len(series))
		switch {
		case dimMean >= 70:
			out.Strengths = append(out.Strengths, name)
		case dimMean < 60:
			out.Weaknesses = append(out.Weaknesses, name)
		}
	}

	return out, nil
}

func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
