package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
)

// recencyBase weights responses within a session: weight = 1.1^index,
// so the most recent response counts the most.
const recencyBase = 1.1

// trendSlopeThreshold separates improving/declining from stable.
const trendSlopeThreshold = 2.0

// trendWindow is how many historical scores feed the trend regression.
const trendWindow = 5

// dimensionWeights combine the eight dimensions into the overall score.
// They sum to 1.
var dimensionWeights = map[string]float64{
	model.DimRelevance:     0.20,
	model.DimClarity:       0.15,
	model.DimDepth:         0.15,
	model.DimCommunication: 0.15,
	model.DimCompleteness:  0.15,
	model.DimTechnical:     0.07,
	model.DimBehavioral:    0.07,
	model.DimProblem:       0.06,
}

// benchmarks are difficulty-specific score thresholds for the 25th,
// 50th, 75th, and 90th percentile buckets.
var benchmarks = map[model.Difficulty][4]float64{
	model.DifficultyEasy:   {45, 55, 68, 82},
	model.DifficultyMedium: {40, 50, 63, 78},
	model.DifficultyHard:   {35, 45, 58, 74},
}

var percentileLabels = [5]string{"10th", "25th", "50th", "75th", "90th"}

// dimensionAdvice is the 3-tier advice table for weak dimensions,
// indexed by severity: 0 = low (score 50-59), 1 = medium (40-49),
// 2 = high (<40).
var dimensionAdvice = map[string][3]string{
	model.DimClarity: {
		"Polish your phrasing — read answers aloud to catch rambling.",
		"Shorten sentences and lead with your main point.",
		"Practice stating one idea per sentence before adding detail.",
	},
	model.DimRelevance: {
		"Echo key terms from the question in your answer.",
		"Re-read the question and answer it directly before elaborating.",
		"Practice restating the question in your own words before answering.",
	},
	model.DimDepth: {
		"Add one concrete detail to each main point.",
		"Go beyond what happened — explain how and why.",
		"Prepare two or three in-depth stories you can adapt to many prompts.",
	},
	model.DimCommunication: {
		"Use transitions like 'first' and 'as a result' to guide the listener.",
		"Structure answers with a clear beginning, middle, and end.",
		"Practice the STAR method until the structure is second nature.",
	},
	model.DimCompleteness: {
		"Double-check you touched every part of the question.",
		"List the question's sub-parts mentally and answer each one.",
		"Practice breaking questions into components before answering.",
	},
	model.DimTechnical: {
		"Name the specific tools and techniques you used.",
		"Walk through your technical reasoning step by step.",
		"Review fundamentals for your target role and rehearse explaining them.",
	},
	model.DimBehavioral: {
		"Anchor behavioral answers in one specific situation.",
		"Always close behavioral answers with the result and what you learned.",
		"Build a story bank of five STAR stories covering common themes.",
	},
	model.DimProblem: {
		"State your assumptions out loud when working through a problem.",
		"Compare at least two approaches before committing to one.",
		"Practice decomposing open-ended problems into smaller questions.",
	},
}

// PerformanceTracker aggregates scored responses into dimension and
// overall scores, computes trends against history, and produces
// recommendations. It is synchronous and side-effect-free; history reads
// degrade gracefully when storage is unavailable.
type PerformanceTracker struct {
	history HistoryStore
	log     zerolog.Logger
}

// NewPerformanceTracker creates a tracker backed by the given history store.
func NewPerformanceTracker(history HistoryStore, log zerolog.Logger) *PerformanceTracker {
	return &PerformanceTracker{
		history: history,
		log:     log.With().Str("component", "performance_tracker").Logger(),
	}
}

// CalculateSessionScore computes the eight dimension scores, the overall
// score, the improvement delta, trend labels, percentile ranking, and
// recommendations for a session's scored responses.
func (t *PerformanceTracker) CalculateSessionScore(ctx context.Context, s *model.Session) (*model.PerformanceScore, error) {
	if s == nil {
		return nil, errs.NewValidation([]string{"session is required"})
	}

	analyzed := analyzedResponses(s)
	questionType := questionTypeByID(s)

	dims := make([]model.DimensionScore, 0, len(model.AllDimensions))
	for _, name := range model.AllDimensions {
		values := make([]float64, 0, len(analyzed))
		for _, r := range analyzed {
			values = append(values, dimensionValue(name, questionType[r.QuestionID.String()], r.Analysis))
		}
		score := recencyWeightedAverage(values)
		dims = append(dims, model.DimensionScore{
			Name:  name,
			Score: round1(score),
			Trend: t.dimensionTrend(ctx, s.UserID, name, score),
		})
	}

	overall := 0.0
	for _, d := range dims {
		overall += dimensionWeights[d.Name] * d.Score
	}
	overall = clampScore(math.Round(overall))

	return &model.PerformanceScore{
		OverallScore:    overall,
		Dimensions:      dims,
		Improvement:     t.improvement(ctx, s.UserID, overall),
		Ranking:         ranking(s.Config.Difficulty, overall),
		Recommendations: t.recommendations(s, dims),
	}, nil
}

// dimensionTrend fits a least-squares line over the user's last few
// historical scores plus the current one. History failures degrade to
// stable rather than blocking the session flow.
func (t *PerformanceTracker) dimensionTrend(ctx context.Context, userID, dimension string, current float64) model.Trend {
	history, err := t.history.DimensionHistory(ctx, userID, dimension, trendWindow)
	if err != nil {
		t.log.Warn().Err(err).Str("dimension", dimension).Msg("dimension history unavailable")
		return model.TrendStable
	}
	if len(history) == 0 {
		return model.TrendStable
	}

	// History arrives newest first; regress in chronological order.
	series := make([]float64, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		series = append(series, history[i])
	}
	series = append(series, current)

	slope := regressionSlope(series)
	switch {
	case slope > trendSlopeThreshold:
		return model.TrendImproving
	case slope < -trendSlopeThreshold:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

// improvement is the current overall minus the mean of the user's last
// three historical overalls, zero when there is no history.
func (t *PerformanceTracker) improvement(ctx context.Context, userID string, overall float64) float64 {
	history, err := t.history.OverallHistory(ctx, userID, 3)
	if err != nil {
		t.log.Warn().Err(err).Msg("overall history unavailable")
		return 0
	}
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range history {
		sum += v
	}
	return round1(overall - sum/float64(len(history)))
}

// recommendations returns up to five nudges, weakest dimensions first.
func (t *PerformanceTracker) recommendations(s *model.Session, dims []model.DimensionScore) []string {
	recs := []string{}

	// Up to three weakest dimensions under 60, through the advice table.
	weak := make([]model.DimensionScore, 0, len(dims))
	for _, d := range dims {
		if d.Score < 60 {
			weak = append(weak, d)
		}
	}
	sort.Slice(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })
	for i, d := range weak {
		if i == 3 {
			break
		}
		recs = append(recs, dimensionAdvice[d.Name][severity(d.Score)])
	}

	// Session-shape heuristics.
	if s.Config.DurationMinutes > 0 && s.EndedAt != nil {
		limit := time.Duration(s.Config.DurationMinutes) * time.Minute
		if s.EndedAt.Sub(s.StartedAt) > limit+time.Minute {
			recs = append(recs, "You ran past the session limit — practice pacing your answers.")
		}
	}
	if types := distinctQuestionTypes(s); types == 1 && len(s.Questions) >= 3 {
		recs = append(recs, "Mix in other question types next session for broader coverage.")
	}

	// Trend nudges.
	for _, d := range dims {
		if d.Trend == model.TrendDeclining {
			recs = append(recs, "Your "+displayName(d.Name)+" has been slipping — give it focus next session.")
			break
		}
	}

	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}

func severity(score float64) int {
	switch {
	case score < 40:
		return 2
	case score < 50:
		return 1
	default:
		return 0
	}
}

// ranking buckets the overall score against difficulty-specific
// thresholds. Unknown difficulty uses the medium tier.
func ranking(d model.Difficulty, overall float64) string {
	tiers, ok := benchmarks[d]
	if !ok {
		tiers = benchmarks[model.DifficultyMedium]
	}
	for i, threshold := range tiers {
		if overall < threshold {
			return percentileLabels[i]
		}
	}
	return percentileLabels[4]
}

// dimensionValue extracts or derives the per-response value for one
// dimension. The three derived dimensions blend the base sub-scores
// differently depending on the question type.
func dimensionValue(dim string, qType model.QuestionType, a *model.ResponseAnalysis) float64 {
	switch dim {
	case model.DimClarity:
		return a.Clarity
	case model.DimRelevance:
		return a.Relevance
	case model.DimDepth:
		return a.Depth
	case model.DimCommunication:
		return a.Communication
	case model.DimCompleteness:
		return a.Completeness
	case model.DimTechnical:
		if qType == model.QuestionTypeTechnical || qType == model.QuestionTypeSystemDesign {
			return 0.45*a.Relevance + 0.35*a.Depth + 0.20*a.Completeness
		}
		return 0.30*a.Relevance + 0.40*a.Depth + 0.30*a.Completeness
	case model.DimBehavioral:
		if qType == model.QuestionTypeBehavioral || qType == model.QuestionTypeSituational {
			return 0.40*a.Communication + 0.35*a.Clarity + 0.25*a.Completeness
		}
		return 0.50*a.Communication + 0.30*a.Clarity + 0.20*a.Completeness
	case model.DimProblem:
		if qType == model.QuestionTypeCaseStudy || qType == model.QuestionTypeSystemDesign {
			return 0.40*a.Depth + 0.35*a.Relevance + 0.25*a.Clarity
		}
		return 0.35*a.Depth + 0.35*a.Relevance + 0.30*a.Clarity
	}
	return 0
}

// recencyWeightedAverage averages values with weight 1.1^index so later
// entries dominate. Empty input scores zero.
func recencyWeightedAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, weightSum float64
	for i, v := range values {
		w := math.Pow(recencyBase, float64(i))
		sum += w * v
		weightSum += w
	}
	return sum / weightSum
}

// regressionSlope fits y = a + b*x over index order and returns b.
func regressionSlope(series []float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func analyzedResponses(s *model.Session) []model.Response {
	out := make([]model.Response, 0, len(s.Responses))
	for _, r := range s.Responses {
		if r.Analysis != nil {
			out = append(out, r)
		}
	}
	return out
}

func questionTypeByID(s *model.Session) map[string]model.QuestionType {
	m := make(map[string]model.QuestionType, len(s.Questions))
	for _, q := range s.Questions {
		m[q.ID.String()] = q.Type
	}
	return m
}

func distinctQuestionTypes(s *model.Session) int {
	seen := map[model.QuestionType]bool{}
	for _, q := range s.Questions {
		seen[q.Type] = true
	}
	return len(seen)
}

func displayName(dim string) string {
	switch dim {
	case model.DimTechnical:
		return "technical accuracy"
	case model.DimBehavioral:
		return "behavioral storytelling"
	case model.DimProblem:
		return "problem solving"
	default:
		return dim
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
