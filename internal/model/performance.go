package model

// Trend labels the direction of a dimension over recent sessions.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendDeclining Trend = "DECLINING"
	TrendStable    Trend = "STABLE"
)

// Dimension names. The first five are scored directly per response; the
// last three are derived blends that vary by question type.
const (
	DimClarity       = "clarity"
	DimRelevance     = "relevance"
	DimDepth         = "depth"
	DimCommunication = "communication"
	DimCompleteness  = "completeness"
	DimTechnical     = "technical_accuracy"
	DimBehavioral    = "behavioral_competency"
	DimProblem       = "problem_solving"
)

// AllDimensions lists every tracked dimension in reporting order.
var AllDimensions = []string{
	DimClarity, DimRelevance, DimDepth, DimCommunication,
	DimCompleteness, DimTechnical, DimBehavioral, DimProblem,
}

// DimensionScore is one quality axis scored 0-100 with its trend.
type DimensionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Trend Trend   `json:"trend"`
}

// PerformanceScore is the aggregated analysis of one session.
// Improvement is the overall score minus the mean of the user's last
// three historical overalls. Ranking is a percentile bucket against
// difficulty-specific benchmarks.
type PerformanceScore struct {
	OverallScore    float64          `json:"overall_score"`
	Dimensions      []DimensionScore `json:"dimensions"`
	Improvement     float64          `json:"improvement"`
	Ranking         string           `json:"ranking"`
	Recommendations []string         `json:"recommendations"`
}

// Dimension returns the named dimension score, or false if absent.
func (p *PerformanceScore) Dimension(name string) (DimensionScore, bool) {
	for _, d := range p.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return DimensionScore{}, false
}

// SessionSummary is produced when a session completes: the final score
// plus its strongest dimensions and the next-step recommendations.
type SessionSummary struct {
	SessionID       string           `json:"session_id"`
	UserID          string           `json:"user_id"`
	OverallScore    float64          `json:"overall_score"`
	QuestionsAsked  int              `json:"questions_asked"`
	Answered        int              `json:"answered"`
	DurationSeconds float64          `json:"duration_seconds"`
	TopDimensions   []DimensionScore `json:"top_dimensions"`
	Recommendations []string         `json:"recommendations"`
}

// Timeframe filters progress analytics windows.
type Timeframe string

const (
	TimeframeWeek  Timeframe = "WEEK"
	TimeframeMonth Timeframe = "MONTH"
	TimeframeAll   Timeframe = "ALL"
)

// ProgressAnalytics summarizes a user's history within a timeframe.
// ImprovementRate is the percent change per session between the first
// and last session in the window; ConsistencyScore is
// max(0, 100 - 2*stddev) of overall scores.
type ProgressAnalytics struct {
	Timeframe        Timeframe          `json:"timeframe"`
	TotalSessions    int                `json:"total_sessions"`
	AverageScore     float64            `json:"average_score"`
	HighScore        float64            `json:"high_score"`
	LowScore         float64            `json:"low_score"`
	ImprovementRate  float64            `json:"improvement_rate"`
	ConsistencyScore float64            `json:"consistency_score"`
	DimensionTrends  map[string]float64 `json:"dimension_trends"`
	Strengths        []string           `json:"strengths"`
	Weaknesses       []string           `json:"weaknesses"`
}
