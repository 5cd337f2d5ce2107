// ABOUTME: Splits OCR text into individual chat messages
// ABOUTME: Picks the message belonging to the expected follow-up stage
package ocr

import (
	"regexp"
	"strings"
)

const (
	// SnippetRunes caps the stored message snippet.
	SnippetRunes = 1000

	minSegmentLen = 20
	minLineLen    = 10
)

var (
	timestampSeparator = regexp.MustCompile(`(?i)(?:hari\s+ini|today|kemarin|yesterday)\s+\d{1,2}[:.]\d{2}`)
	timestampLine      = regexp.MustCompile(`(?i)^(?:(?:hari\s+ini|today|kemarin|yesterday)\s+)?\d{1,2}[:.]\d{2}\b`)
)

// StageDetector reports which stage template a text most resembles.
type StageDetector interface {
	DetectStage(text string) (int, bool)
}

// Segmenter breaks OCR text into messages.
type Segmenter struct {
	vocab    *Vocabulary
	detector StageDetector
}

// NewSegmenter builds a segmenter. detector is used by SelectForStage.
func NewSegmenter(vocab *Vocabulary, detector StageDetector) *Segmenter {
	return &Segmenter{vocab: vocab, detector: detector}
}

// Segment returns the message bodies found in raw OCR text.
func (s *Segmenter) Segment(raw string) []string {
	if segs := s.splitOnTimestamps(raw); len(segs) > 0 {
		return segs
	}
	return s.scanLines(raw)
}

func (s *Segmenter) splitOnTimestamps(raw string) []string {
	if !timestampSeparator.MatchString(raw) {
		return nil
	}
	var out []string
	for _, section := range timestampSeparator.Split(raw, -1) {
		section = strings.TrimSpace(section)
		if len(section) < minSegmentLen || !s.vocab.indicator.MatchString(section) {
			continue
		}
		cleaned := collapse(s.vocab.uiWord.ReplaceAllString(section, " "))
		if len(cleaned) >= minSegmentLen {
			out = append(out, cleaned)
		}
	}
	return out
}

// scanLines starts capturing at the first line with a message indicator and
// groups captured lines into messages at timestamp lines.
func (s *Segmenter) scanLines(raw string) []string {
	var (
		out     []string
		current []string
		started bool
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || s.vocab.profileLine.MatchString(line) {
			continue
		}
		if timestampLine.MatchString(line) {
			flush()
			continue
		}
		if !started && s.vocab.indicator.MatchString(line) {
			started = true
		}
		if started && len(line) > minLineLen {
			current = append(current, collapse(line))
		}
	}
	flush()
	return out
}

// SelectForStage picks the snippet to store. For a follow-up stage it returns
// the first segment detected as that stage, falling back to the most recent
// segment. Otherwise all segments are joined.
func (s *Segmenter) SelectForStage(segments []string, stage *int) string {
	if len(segments) == 0 {
		return ""
	}
	if stage == nil || *stage <= 0 {
		return truncateRunes(strings.Join(segments, " "), SnippetRunes)
	}
	for _, seg := range segments {
		if detected, ok := s.detector.DetectStage(seg); ok && detected == *stage {
			return truncateRunes(seg, SnippetRunes)
		}
	}
	return truncateRunes(segments[len(segments)-1], SnippetRunes)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
