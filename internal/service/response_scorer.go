package service

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rehearsely/rehearse-backend/internal/model"
)

// NoResponseSuggestion is the single suggestion attached to the
// canonical zero analysis for empty input.
const NoResponseSuggestion = "Please provide a response to receive analysis."

// wordBand is the ideal word-count range for a question type.
type wordBand struct {
	min, max int
}

// Ideal answer lengths per question type. System-design and case-study
// prompts get wide bands; follow-ups stay short.
var wordBands = map[model.QuestionType]wordBand{
	model.QuestionTypeBehavioral:   {50, 200},
	model.QuestionTypeTechnical:    {40, 180},
	model.QuestionTypeSituational:  {50, 200},
	model.QuestionTypeSystemDesign: {80, 350},
	model.QuestionTypeCaseStudy:    {80, 300},
	model.QuestionTypeRoleSpecific: {40, 180},
	model.QuestionTypeFollowUp:     {20, 120},
}

var defaultBand = wordBand{40, 200}

var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "could": true, "describe": true,
	"did": true, "does": true, "ever": true, "explain": true, "from": true,
	"have": true, "how": true, "into": true, "most": true, "share": true,
	"should": true, "some": true, "tell": true, "that": true, "their": true,
	"them": true, "there": true, "these": true, "they": true, "this": true,
	"time": true, "what": true, "when": true, "where": true, "which": true,
	"whom": true, "with": true, "would": true, "your": true, "yours": true,
}

var actionVerbs = []string{
	"implemented", "developed", "designed", "led", "managed", "created",
	"built", "launched", "optimized", "improved", "reduced", "increased",
	"delivered", "resolved", "automated", "mentored", "coordinated",
	"negotiated", "migrated", "refactored",
}

var transitionWords = []string{
	"first", "then", "next", "finally", "however", "additionally",
	"moreover", "as a result", "therefore", "because", "consequently",
}

var exampleMarkers = []string{
	"for example", "for instance", "in my experience", "specifically", "such as",
}

// starKeywords detect Situation/Task/Action/Result components in
// behavioral answers.
var starKeywords = map[string][]string{
	"Situation": {"situation", "context", "background", "at the time", "we faced", "when i"},
	"Task":      {"task", "goal", "objective", "responsible", "needed to", "my role"},
	"Action":    {"action", "i implemented", "i led", "i decided", "i created", "i built", "i took", "so i"},
	"Result":    {"result", "outcome", "achieved", "increased", "reduced", "improved", "learned", "impact"},
}

var starOrder = []string{"Situation", "Task", "Action", "Result"}

// ResponseScorer grades one response against its question. It is a pure,
// deterministic rule-based function: same input, same analysis, and it
// never returns an error — unscoreable input degrades to the canonical
// empty analysis.
type ResponseScorer struct {
	profile ScoringProfile
}

// NewResponseScorer creates a scorer with the given weighting profile.
func NewResponseScorer(p ScoringProfile) *ResponseScorer {
	return &ResponseScorer{profile: p.normalized()}
}

// Score analyzes a response against its question.
func (rs *ResponseScorer) Score(resp model.Response, q model.Question) model.ResponseAnalysis {
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return model.ResponseAnalysis{
			Strengths:   []string{},
			Suggestions: []string{NoResponseSuggestion},
		}
	}

	lower := strings.ToLower(text)
	words := strings.Fields(text)
	wc := len(words)
	sentences := countSentences(text)
	band := bandFor(q.Type)

	verbs := foundActionVerbs(lower)
	quantifiable := hasQuantifiable(lower)
	star := foundSTAR(lower)
	keywords := questionKeywords(q.Text)
	matches := countMatches(lower, keywords)
	matchedElements := matchElements(lower, q.ExpectedElements)

	length := lengthScore(wc, band)
	keyword := keywordScore(keywords, matches, len(verbs), quantifiable)
	structure := structureScore(lower, sentences, wc, q.Type, star)
	completeness := completenessScore(len(q.ExpectedElements), len(matchedElements))

	metrics := model.AnalysisMetrics{
		WordCount:         wc,
		SentenceCount:     sentences,
		LengthScore:       length,
		KeywordScore:      keyword,
		StructureScore:    structure,
		CompletenessScore: completeness,
		KeywordMatches:    matches,
		ActionVerbs:       verbs,
		HasQuantifiable:   quantifiable,
		STARComponents:    star,
		MatchedElements:   matchedElements,
	}

	overall := rs.profile.Length*length +
		rs.profile.Keyword*keyword +
		rs.profile.Structure*structure +
		rs.profile.Completeness*completeness

	strengths, suggestions := feedback(q, metrics, band)

	return model.ResponseAnalysis{
		Clarity:       clampScore(0.6*structure + 0.4*length),
		Relevance:     keyword,
		Depth:         clampScore(0.5*length + 0.5*completeness),
		Communication: structure,
		Completeness:  completeness,
		OverallScore:  clampScore(math.Round(overall)),
		Strengths:     strengths,
		Suggestions:   suggestions,
		Metrics:       metrics,
	}
}

func bandFor(t model.QuestionType) wordBand {
	if b, ok := wordBands[t]; ok {
		return b
	}
	return defaultBand
}

// lengthScore maps word count onto the ideal band: roughly 20 far below,
// 90-95 inside, tapering to 60 beyond 1.5x the ceiling.
func lengthScore(wc int, band wordBand) float64 {
	fwc := float64(wc)
	fmin := float64(band.min)
	fmax := float64(band.max)
	switch {
	case wc < band.min:
		return clampScore(20 + 70*fwc/fmin)
	case fwc <= fmax:
		return 95 - 5*(fwc-fmin)/(fmax-fmin)
	case fwc <= 1.5*fmax:
		return 90 - 25*(fwc-fmax)/(0.5*fmax)
	default:
		return 60
	}
}

// keywordScore rewards overlap with the question's salient tokens plus
// action verbs and quantifiable impact. Clamped to [20,100].
func keywordScore(keywords []string, matches, verbCount int, quantifiable bool) float64 {
	base := 60.0
	if len(keywords) > 0 {
		base = 40 + 60*float64(matches)/float64(len(keywords))
	}
	bonus := 5 * float64(verbCount)
	if bonus > 15 {
		bonus = 15
	}
	if quantifiable {
		bonus += 10
	}
	score := base + bonus
	if score < 20 {
		score = 20
	}
	return clampScore(score)
}

// structureScore starts at 50 and rewards multi-sentence answers,
// transitions, and concrete examples. Behavioral questions blend in STAR
// component coverage.
func structureScore(lower string, sentences, wc int, qType model.QuestionType, star []string) float64 {
	score := 50.0
	if sentences >= 3 {
		score += 15
	}
	if sentences >= 5 {
		score += 10
	}
	if sentences <= 1 && wc > 30 {
		score -= 15
	}

	var transitionBonus float64
	for _, t := range transitionWords {
		if containsWord(lower, t) {
			transitionBonus += 5
		}
	}
	if transitionBonus > 15 {
		transitionBonus = 15
	}
	score += transitionBonus

	for _, m := range exampleMarkers {
		if strings.Contains(lower, m) {
			score += 10
			break
		}
	}

	if qType == model.QuestionTypeBehavioral {
		starScore := 25 * float64(len(star))
		score = 0.6*score + 0.4*starScore
	}

	return clampScore(score)
}

// completenessScore rescales the fraction of expected elements found to
// [30,100]. Questions without expected elements default to 75.
func completenessScore(expected, found int) float64 {
	if expected == 0 {
		return 75
	}
	return clampScore(30 + 70*float64(found)/float64(expected))
}

// feedback walks the ordered checklist and emits templated strengths and
// suggestions. Any non-empty response gets at least one strength.
func feedback(q model.Question, m model.AnalysisMetrics, band wordBand) (strengths, suggestions []string) {
	strengths = []string{}
	suggestions = []string{}

	if m.WordCount < band.min {
		suggestions = append(suggestions, "Add more detail — strong answers to this kind of question run at least "+strconv.Itoa(band.min)+" words.")
	}
	if len(m.ActionVerbs) == 0 {
		suggestions = append(suggestions, "Use action verbs like 'implemented' or 'led' to describe what you did.")
	}
	if !m.HasQuantifiable {
		suggestions = append(suggestions, "Quantify your impact with numbers, percentages, or amounts.")
	}
	if q.Type == model.QuestionTypeBehavioral && len(m.STARComponents) < len(starOrder) {
		missing := missingSTAR(m.STARComponents)
		suggestions = append(suggestions, "Structure your answer with the STAR method — missing: "+strings.Join(missing, ", ")+".")
	}
	if float64(m.WordCount) > 1.5*float64(band.max) {
		suggestions = append(suggestions, "Tighten your answer; it runs well past the ideal length for this question.")
	}
	if missed := len(q.ExpectedElements) - len(m.MatchedElements); missed > 0 {
		suggestions = append(suggestions, "Make sure to address: "+strings.Join(unmatchedElements(q.ExpectedElements, m.MatchedElements), ", ")+".")
	}

	if m.WordCount >= band.min && m.WordCount <= band.max {
		strengths = append(strengths, "Well-paced answer length.")
	}
	if len(m.ActionVerbs) > 0 {
		strengths = append(strengths, "Strong action-oriented language.")
	}
	if m.HasQuantifiable {
		strengths = append(strengths, "Good use of quantifiable results.")
	}
	if m.SentenceCount >= 3 {
		strengths = append(strengths, "Clear multi-sentence structure.")
	}
	if len(q.ExpectedElements) > 0 && len(m.MatchedElements) == len(q.ExpectedElements) {
		strengths = append(strengths, "Covered every expected point.")
	}

	if len(strengths) == 0 {
		strengths = append(strengths, "You gave it a shot — keep practicing to build on this answer.")
	}
	return strengths, suggestions
}

// ────────────────────────────────────────────────────────────────────────
// Text helpers
// ────────────────────────────────────────────────────────────────────────

// questionKeywords tokenizes the question, dropping stop-words and
// tokens of three characters or fewer.
func questionKeywords(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(raw))
	var keywords []string
	for _, tok := range raw {
		if len(tok) <= 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

// countMatches counts keywords present in the response. Matching is
// substring-tolerant so "optimize" matches "optimized".
func countMatches(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) || (len(k) > 5 && strings.Contains(lower, k[:len(k)-2])) {
			n++
		}
	}
	return n
}

func foundActionVerbs(lower string) []string {
	var found []string
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			found = append(found, v)
		}
	}
	return found
}

// hasQuantifiable detects percentages, currency, or plain numbers.
func hasQuantifiable(lower string) bool {
	if strings.ContainsAny(lower, "%$€£") {
		return true
	}
	for _, r := range lower {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func foundSTAR(lower string) []string {
	var found []string
	for _, comp := range starOrder {
		for _, kw := range starKeywords[comp] {
			if strings.Contains(lower, kw) {
				found = append(found, comp)
				break
			}
		}
	}
	return found
}

func missingSTAR(found []string) []string {
	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[f] = true
	}
	var missing []string
	for _, comp := range starOrder {
		if !present[comp] {
			missing = append(missing, comp)
		}
	}
	return missing
}

// matchElements finds expected elements present in the response, either
// verbatim or by a leading-prefix near-match.
func matchElements(lower string, elements []string) []string {
	var matched []string
	for _, el := range elements {
		e := strings.ToLower(strings.TrimSpace(el))
		if e == "" {
			continue
		}
		if strings.Contains(lower, e) {
			matched = append(matched, el)
			continue
		}
		if len(e) > 5 && strings.Contains(lower, e[:5]) {
			matched = append(matched, el)
		}
	}
	return matched
}

func unmatchedElements(all, matched []string) []string {
	hit := make(map[string]bool, len(matched))
	for _, m := range matched {
		hit[m] = true
	}
	var missing []string
	for _, el := range all {
		if !hit[el] {
			missing = append(missing, el)
		}
	}
	return missing
}

func countSentences(text string) int {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// containsWord matches whole words (or phrases) so "then" does not match
// "strengthen".
func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordRune(rune(lower[start-1]))
		afterOK := end >= len(lower) || !isWordRune(rune(lower[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

