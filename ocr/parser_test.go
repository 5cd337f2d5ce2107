// ABOUTME: Tests for turning OCR text into a parse result
// ABOUTME: Covers username, snippet, date rules, and tolerance of garbage input
package ocr

import (
	"testing"
	"time"

	"github.com/harperreed/canvass/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	vocab := DefaultVocabulary()
	matcher := templates.NewMatcher(templates.DefaultTemplateSet())
	return NewParser(NewExtractor(vocab), NewSegmenter(vocab, matcher), func() time.Time { return fixedNow })
}

func TestParseFullScreenshot(t *testing.T) {
	p := newTestParser()
	raw := "Anda memulai obrolan dengan kopi_senja88\n" + twoMessageScreenshot

	r := p.Parse(raw, intp(1))
	assert.Equal(t, "kopi_senja88", r.Username)
	assert.Equal(t, StrategyStartedConversation, r.Strategy)
	assert.Contains(t, r.MessageSnippet, "masuk 2026 nanti")
	assert.NotContains(t, r.MessageSnippet, "perkenalkan")
	require.NotNil(t, r.Date)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), *r.Date)
}

func TestParseExplicitDate(t *testing.T) {
	p := newTestParser()

	r := p.Parse("@warung_ibu_sari 12/03/2026 Halo kak", nil)
	require.NotNil(t, r.Date)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), *r.Date)

	// the first triple is not a real date, the second one is
	r = p.Parse("31/02/26 lalu 5-4-26", nil)
	require.NotNil(t, r.Date)
	assert.Equal(t, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), *r.Date)

	r = p.Parse("no date here at all", nil)
	assert.Nil(t, r.Date)
}

func TestParseMissingFieldsAreEmpty(t *testing.T) {
	p := newTestParser()

	assert.Equal(t, Result{}, p.Parse("", intp(2)))

	r := p.Parse("\x00\xff<<<@@@ ### ...", intp(3))
	assert.Empty(t, r.Username)
	assert.Empty(t, r.MessageSnippet)
	assert.Nil(t, r.Date)
}

func TestParseDatesUseClockLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	vocab := DefaultVocabulary()
	matcher := templates.NewMatcher(templates.DefaultTemplateSet())
	p := NewParser(NewExtractor(vocab), NewSegmenter(vocab, matcher), func() time.Time {
		return time.Date(2026, 3, 5, 8, 0, 0, 0, wib)
	})

	explicit := p.Parse("@warung_ibu_sari 05/03/2026 Halo kak", nil)
	today := p.Parse("@warung_ibu_sari Hari ini 10:15 Halo kak", nil)
	require.NotNil(t, explicit.Date)
	require.NotNil(t, today.Date)

	assert.Equal(t, wib, explicit.Date.Location())
	assert.True(t, explicit.Date.Equal(*today.Date), "%v vs %v", explicit.Date, today.Date)
}

func TestBuildDate(t *testing.T) {
	d, ok := buildDate("1", "1", "25", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2025, d.Year())

	_, ok = buildDate("29", "2", "2025", time.UTC)
	assert.False(t, ok)
	_, ok = buildDate("29", "2", "2024", time.UTC)
	assert.True(t, ok)
	_, ok = buildDate("10", "13", "2024", time.UTC)
	assert.False(t, ok)
	_, ok = buildDate("10", "10", "202", time.UTC)
	assert.False(t, ok)
}
