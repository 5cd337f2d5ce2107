// ABOUTME: Immutable vocabulary used to interpret OCR text from chat screenshots
// ABOUTME: Loads stoplist, header markers, and message indicators from YAML
package ocr

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_vocabulary.yaml
var defaultVocabularyYAML []byte

type vocabularyFile struct {
	Stoplist           []string `yaml:"stoplist"`
	BodyKeywords       []string `yaml:"body_keywords"`
	HeaderContext      []string `yaml:"header_context"`
	ConversationLabels []string `yaml:"conversation_labels"`
	FollowerWords      []string `yaml:"follower_words"`
	JoinedWords        []string `yaml:"joined_words"`
	BackGlyphs         []string `yaml:"back_glyphs"`
	MessageIndicators  []string `yaml:"message_indicators"`
	UIWords            []string `yaml:"ui_words"`
}

// Vocabulary is the compiled, read-only word data the extractor and
// segmenter depend on.
type Vocabulary struct {
	stoplist map[string]bool

	bodyKeyword   *regexp.Regexp
	headerContext *regexp.Regexp
	convLabel     string
	followerWord  string
	joinedWord    string
	backGlyph     string
	indicator     *regexp.Regexp
	uiWord        *regexp.Regexp
	profileLine   *regexp.Regexp
}

// ParseVocabulary compiles a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}

	required := map[string][]string{
		"stoplist":            f.Stoplist,
		"body_keywords":       f.BodyKeywords,
		"header_context":      f.HeaderContext,
		"conversation_labels": f.ConversationLabels,
		"follower_words":      f.FollowerWords,
		"joined_words":        f.JoinedWords,
		"back_glyphs":         f.BackGlyphs,
		"message_indicators":  f.MessageIndicators,
		"ui_words":            f.UIWords,
	}
	for name, list := range required {
		if len(list) == 0 {
			return nil, fmt.Errorf("vocabulary: %s must not be empty", name)
		}
	}

	v := &Vocabulary{stoplist: make(map[string]bool, len(f.Stoplist))}
	for _, w := range f.Stoplist {
		v.stoplist[strings.ToLower(strings.TrimSpace(w))] = true
	}

	v.bodyKeyword = regexp.MustCompile(`(?i)\b(?:` + wordAlternation(f.BodyKeywords) + `)\b`)
	v.headerContext = regexp.MustCompile(`(?i)\b(?:` + wordAlternation(f.HeaderContext) + `)\b`)
	v.convLabel = wordAlternation(f.ConversationLabels)
	v.followerWord = wordAlternation(f.FollowerWords)
	v.joinedWord = wordAlternation(f.JoinedWords)
	v.uiWord = regexp.MustCompile(`(?i)\b(?:` + wordAlternation(f.UIWords) + `)\b`)
	v.profileLine = regexp.MustCompile(`(?i)^(?:@|following\b|` + wordAlternation(f.UIWords) + `)`)

	glyphs := make([]string, 0, len(f.BackGlyphs))
	for _, g := range f.BackGlyphs {
		glyphs = append(glyphs, regexp.QuoteMeta(g))
	}
	v.backGlyph = strings.Join(glyphs, "|")

	for _, p := range f.MessageIndicators {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("vocabulary: bad message indicator %q: %w", p, err)
		}
	}
	v.indicator = regexp.MustCompile(`(?i)(?:` + strings.Join(f.MessageIndicators, "|") + `)`)

	return v, nil
}

// LoadVocabulary reads a vocabulary file from disk.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// Stopped reports whether word may never be accepted as a handle.
func (v *Vocabulary) Stopped(word string) bool {
	return v.stoplist[strings.ToLower(word)]
}

// wordAlternation quotes each entry and lets any whitespace run match the
// spaces inside multi-word entries.
func wordAlternation(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		fields := strings.Fields(w)
		for i, f := range fields {
			fields[i] = regexp.QuoteMeta(f)
		}
		parts = append(parts, strings.Join(fields, `\s+`))
	}
	return strings.Join(parts, "|")
}
