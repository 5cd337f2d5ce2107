// ABOUTME: Scores message text against stage templates
// ABOUTME: Provides stage detection and per-stage validation with found keywords and phrases
package templates

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	keywordPoints   = 2
	phrasePoints    = 5
	dayMarkerPoints = 10

	// DetectThreshold is the minimum score for DetectStage to report a stage.
	DetectThreshold = 5
	// ValidThreshold is the minimum score for ValidateForStage to pass.
	ValidThreshold = 3
)

// Scorer is implemented by Matcher and by the hot-reloading Watcher.
type Scorer interface {
	ScoreStage(text string, stage int) int
	DetectStage(text string) (int, bool)
	ValidateForStage(text string, stage int) Validation
}

// Validation is the outcome of checking a message against one stage.
type Validation struct {
	Valid         bool     `json:"valid"`
	ExpectedStage int      `json:"expected_stage"`
	Score         int      `json:"score"`
	DetectedStage *int     `json:"detected_stage,omitempty"`
	FoundKeywords []string `json:"found_keywords"`
	FoundPhrases  []string `json:"found_phrases"`
}

// Matcher scores text against an immutable TemplateSet. It is safe for
// concurrent use.
type Matcher struct {
	set        *TemplateSet
	dayMarkers map[int]*regexp.Regexp
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewMatcher builds a matcher for set.
func NewMatcher(set *TemplateSet) *Matcher {
	m := &Matcher{set: set, dayMarkers: make(map[int]*regexp.Regexp, len(set.stages))}
	for _, st := range set.stages {
		m.dayMarkers[st.Stage] = regexp.MustCompile(fmt.Sprintf(`(?i)\*?\s*day\s*%d\s*\*?`, st.Stage))
	}
	return m
}

// Set returns the template set the matcher scores against.
func (m *Matcher) Set() *TemplateSet {
	return m.set
}

func normalize(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(text), " ")
}

// ScoreStage returns the template score of text for stage. Unknown stages
// score 0.
func (m *Matcher) ScoreStage(text string, stage int) int {
	score, _, _ := m.score(normalize(text), stage)
	return score
}

func (m *Matcher) score(norm string, stage int) (int, []string, []string) {
	i, ok := m.set.byID[stage]
	if !ok {
		return 0, nil, nil
	}
	st := m.set.stages[i]

	score := 0
	keywords := []string{}
	phrases := []string{}
	for _, kw := range st.Keywords {
		if strings.Contains(norm, kw) {
			score += keywordPoints
			keywords = append(keywords, kw)
		}
	}
	for _, ph := range st.Phrases {
		if strings.Contains(norm, ph) {
			score += phrasePoints
			phrases = append(phrases, ph)
		}
	}
	if m.dayMarkers[stage].MatchString(norm) {
		score += dayMarkerPoints
	}
	return score, keywords, phrases
}

// DetectStage returns the best scoring stage, or false when no stage reaches
// DetectThreshold. Ties keep the lowest stage.
func (m *Matcher) DetectStage(text string) (int, bool) {
	return m.detect(normalize(text))
}

func (m *Matcher) detect(norm string) (int, bool) {
	best, bestScore := 0, 0
	for _, st := range m.set.stages {
		score, _, _ := m.score(norm, st.Stage)
		if score > bestScore {
			best, bestScore = st.Stage, score
		}
	}
	if bestScore < DetectThreshold {
		return 0, false
	}
	return best, true
}

// ValidateForStage checks whether text carries the expected stage's template.
// Other stages' templates may also be present.
func (m *Matcher) ValidateForStage(text string, stage int) Validation {
	v := Validation{ExpectedStage: stage, FoundKeywords: []string{}, FoundPhrases: []string{}}
	if _, ok := m.set.byID[stage]; !ok {
		return v
	}

	norm := normalize(text)
	v.Score, v.FoundKeywords, v.FoundPhrases = m.score(norm, stage)
	v.Valid = v.Score >= ValidThreshold
	if detected, ok := m.detect(norm); ok {
		v.DetectedStage = &detected
	}
	return v
}
