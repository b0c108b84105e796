package service

import "github.com/rehearsely/rehearse-backend/internal/config"

// ScoringProfile weights the four raw response metrics into the overall
// score. The defaults are reference values tuned by hand; both halves of
// the product (quick drills and full mock interviews) share this single
// scorer and select a profile instead of forking the algorithm.
type ScoringProfile struct {
	Length       float64
	Keyword      float64
	Structure    float64
	Completeness float64
}

// DefaultProfile returns the reference weighting: keyword relevance
// dominates, completeness close behind.
func DefaultProfile() ScoringProfile {
	return ScoringProfile{
		Length:       0.15,
		Keyword:      0.35,
		Structure:    0.20,
		Completeness: 0.30,
	}
}

// ProfileFromConfig builds a profile from the deployment configuration.
func ProfileFromConfig(cfg *config.Config) ScoringProfile {
	return ScoringProfile{
		Length:       cfg.ScoreWeightLength,
		Keyword:      cfg.ScoreWeightKeyword,
		Structure:    cfg.ScoreWeightStructure,
		Completeness: cfg.ScoreWeightCompleteness,
	}.normalized()
}

// normalized rescales the weights to sum to 1, falling back to the
// default profile when they are all zero or negative.
func (p ScoringProfile) normalized() ScoringProfile {
	sum := p.Length + p.Keyword + p.Structure + p.Completeness
	if sum <= 0 {
		return DefaultProfile()
	}
	return ScoringProfile{
		Length:       p.Length / sum,
		Keyword:      p.Keyword / sum,
		Structure:    p.Structure / sum,
		Completeness: p.Completeness / sum,
	}
}
