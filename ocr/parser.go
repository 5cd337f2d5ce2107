// ABOUTME: Parses raw OCR text into handle, message snippet, and date
// ABOUTME: Never fails; fields it cannot determine are left empty
package ocr

import (
	"regexp"
	"strconv"
	"time"
)

var (
	explicitDate = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	todayMarker  = regexp.MustCompile(`(?i)\b(?:hari\s+ini|today)\b`)
)

// Result is what could be read from one screenshot.
type Result struct {
	Username       string     `json:"username,omitempty"`
	Strategy       string     `json:"strategy,omitempty"`
	MessageSnippet string     `json:"message_snippet,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
}

// Parser combines the extractor and segmenter.
type Parser struct {
	extractor *Extractor
	segmenter *Segmenter
	now       func() time.Time
}

// NewParser builds a parser. now supplies the date for "today" markers and
// defaults to time.Now.
func NewParser(extractor *Extractor, segmenter *Segmenter, now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{extractor: extractor, segmenter: segmenter, now: now}
}

// Parse reads raw OCR text. expectedStage selects which message to keep
// when the screenshot shows several.
func (p *Parser) Parse(raw string, expectedStage *int) Result {
	var r Result
	if raw == "" {
		return r
	}

	header := Header(raw)
	if h, strategy, ok := p.extractor.ExtractHeader(header); ok {
		r.Username = h
		r.Strategy = strategy
	}

	r.Date = p.parseDate(collapse(raw))
	r.MessageSnippet = p.segmenter.SelectForStage(p.segmenter.Segment(raw), expectedStage)
	return r
}

func (p *Parser) parseDate(text string) *time.Time {
	now := p.now()
	for _, m := range explicitDate.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[1], m[2], m[3], now.Location()); ok {
			return &d
		}
	}
	if todayMarker.MatchString(text) {
		d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return &d
	}
	return nil
}

// buildDate validates a day/month/year triple and returns midnight in loc.
// Two-digit years are 20YY.
func buildDate(ds, ms, ys string, loc *time.Location) (time.Time, bool) {
	day, _ := strconv.Atoi(ds)
	month, _ := strconv.Atoi(ms)
	year, _ := strconv.Atoi(ys)
	switch len(ys) {
	case 2:
		year += 2000
	case 4:
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}
