// ABOUTME: Extracts the prospect's handle from the header of a chat screenshot
// ABOUTME: Runs an ordered chain of strategies and accepts the first clean candidate
package ocr

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// HeaderRunes bounds the text searched for a handle. Nothing past it
	// is ever considered.
	HeaderRunes = 1000
	// MinHandleLength applies to every stage.
	MinHandleLength = 8
)

// Candidate is a possible handle and its byte span within the header.
type Candidate struct {
	Handle string
	Start  int
	End    int
}

// Strategy finds handle candidates in a header. Find must be pure.
type Strategy struct {
	Name              string
	Find              func(header string) []Candidate
	MinLen            int
	RequireUnderscore bool
	// RequireShape rejects plain words that carry no separator or digit.
	RequireShape      bool
}

// Extractor applies a strategy chain built from a Vocabulary.
type Extractor struct {
	vocab      *Vocabulary
	strategies []Strategy
}

var (
	validHandle  = regexp.MustCompile(`^[a-z0-9._]+$`)
	trailingDots = regexp.MustCompile(`\.{2,}$`)
	handleRun    = regexp.MustCompile(`[A-Za-z0-9._]+`)
)

// NewExtractor builds the strategy chain for vocab.
func NewExtractor(vocab *Vocabulary) *Extractor {
	return &Extractor{vocab: vocab, strategies: buildStrategies(vocab)}
}

// Strategies returns the chain in priority order.
func (e *Extractor) Strategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// Header normalizes raw OCR text and cuts it to the header window.
func Header(raw string) string {
	s := strings.Join(strings.Fields(norm.NFKC.String(raw)), " ")
	return truncateRunes(s, HeaderRunes)
}

// Extract finds the handle in raw OCR text. The strategy name is returned
// alongside so callers can log which marker matched.
func (e *Extractor) Extract(raw string) (handle, strategy string, ok bool) {
	return e.ExtractHeader(Header(raw))
}

// ExtractHeader runs the chain over an already computed header window.
func (e *Extractor) ExtractHeader(header string) (handle, strategy string, ok bool) {
	header = truncateRunes(header, HeaderRunes)
	for _, s := range e.strategies {
		for _, c := range s.Find(header) {
			h := CleanHandle(c.Handle)
			if e.accept(h, s) {
				return h, s.Name, true
			}
		}
	}
	return "", "", false
}

// CleanHandle lowercases a candidate and strips truncation artifacts.
func CleanHandle(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimRight(h, "…")
	h = trailingDots.ReplaceAllString(h, "")
	return strings.Trim(h, "._")
}

// Acceptable applies the stage-independent handle rule.
func (e *Extractor) Acceptable(h string) bool {
	if len(h) < MinHandleLength || !validHandle.MatchString(h) {
		return false
	}
	if strings.IndexFunc(h, unicode.IsLetter) < 0 {
		return false
	}
	return !e.vocab.Stopped(h)
}

func (e *Extractor) accept(h string, s Strategy) bool {
	if !e.Acceptable(h) {
		return false
	}
	if s.MinLen > 0 && len(h) < s.MinLen {
		return false
	}
	if s.RequireUnderscore && !strings.Contains(h, "_") {
		return false
	}
	if s.RequireShape && !hasHandleShape(h) {
		return false
	}
	return true
}

func hasHandleShape(h string) bool {
	return strings.ContainsAny(h, "_.0123456789")
}

func truncateRunes(s string, n int) string {
	return s[:runeOffset(s, n)]
}

// runeOffset returns the byte offset of the n-th rune, or len(s).
func runeOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

// contextAround returns up to n bytes on either side of [start,end), cut
// back to rune boundaries.
func contextAround(s string, start, end, n int) string {
	lo := start - n
	if lo < 0 {
		lo = 0
	}
	for lo < start && !utf8.RuneStart(s[lo]) {
		lo++
	}
	hi := end + n
	if hi > len(s) {
		hi = len(s)
	}
	for hi > end && hi < len(s) && !utf8.RuneStart(s[hi]) {
		hi--
	}
	return s[lo:start] + " " + s[end:hi]
}
