// ABOUTME: Tests for splitting OCR text into messages and choosing the stage snippet
// ABOUTME: Covers timestamp splitting, line fallback, and stage-based selection
package ocr

import (
	"strings"
	"testing"

	"github.com/harperreed/canvass/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoMessageScreenshot = `kopi_senja88
Obrolan bisnis
Hari ini 10:15
Halo kak, perkenalkan aku Bhanu dari STIQR, aplikasi kasirnya gratis tanpa biaya langganan
Hari ini 10.20
*Day 1* masuk 2026 nanti, biaya operasional F&B makin naik`

func newTestSegmenter() *Segmenter {
	return NewSegmenter(DefaultVocabulary(), templates.NewMatcher(templates.DefaultTemplateSet()))
}

func intp(i int) *int { return &i }

func TestSegmentSplitsOnTimestamps(t *testing.T) {
	s := newTestSegmenter()
	segs := s.Segment(twoMessageScreenshot)
	require.Len(t, segs, 2)
	assert.True(t, strings.HasPrefix(segs[0], "Halo kak, perkenalkan"))
	assert.True(t, strings.HasPrefix(segs[1], "*Day 1* masuk 2026"))
}

func TestSegmentStripsInterfaceWords(t *testing.T) {
	s := newTestSegmenter()
	segs := s.Segment("Today 09:00 Halo kak, salam kenal dari kami Lihat profil\nToday 09:05 ok")
	require.Len(t, segs, 1)
	assert.Equal(t, "Halo kak, salam kenal dari kami", segs[0])
}

func TestSegmentFallsBackToLines(t *testing.T) {
	raw := `warung_ibu
Lihat profil
Halo kak, terima kasih sudah membalas
Kami tunggu kabarnya ya kak
10:20
*Day 2* bayar jutaan per tahun untuk kasir dan qris?`

	s := newTestSegmenter()
	segs := s.Segment(raw)
	require.Len(t, segs, 2)
	assert.Equal(t, "Halo kak, terima kasih sudah membalas Kami tunggu kabarnya ya kak", segs[0])
	assert.Equal(t, "*Day 2* bayar jutaan per tahun untuk kasir dan qris?", segs[1])
}

func TestSegmentDayWordWithoutTimeStaysInMessage(t *testing.T) {
	raw := `warung_ibu
Halo kak, terima kasih sudah membalas
Hari ini kami buka sampai malam kak
09:40
Today we are open until late kak`

	s := newTestSegmenter()
	segs := s.Segment(raw)
	require.Len(t, segs, 2)
	assert.Equal(t, "Halo kak, terima kasih sudah membalas Hari ini kami buka sampai malam kak", segs[0])
	assert.Equal(t, "Today we are open until late kak", segs[1])
}

func TestSegmentNothingUseful(t *testing.T) {
	s := newTestSegmenter()
	assert.Empty(t, s.Segment("kopi_senja88\nLihat profil\n1.204 pengikut"))
	assert.Empty(t, s.Segment(""))
}

func TestSelectForStage(t *testing.T) {
	s := newTestSegmenter()
	segs := s.Segment(twoMessageScreenshot)
	require.Len(t, segs, 2)

	assert.Equal(t, segs[1], s.SelectForStage(segs, intp(1)))
	// no segment detects as stage 5, so the most recent one is used
	assert.Equal(t, segs[1], s.SelectForStage(segs, intp(5)))
	assert.Equal(t, segs[0]+" "+segs[1], s.SelectForStage(segs, intp(0)))
	assert.Equal(t, segs[0]+" "+segs[1], s.SelectForStage(segs, nil))
	assert.Equal(t, "", s.SelectForStage(nil, intp(2)))
}

func TestSelectForStageFirstMatchingSegmentWins(t *testing.T) {
	s := newTestSegmenter()
	segs := []string{
		"Halo kak, perkenalkan aku bhanu dari stiqr",
		"*Day 3* struk WA otomatis biar pembeli balik lagi",
		"*Day 4* siapin akun stiqr barengan sama qris atau pos",
	}
	assert.Equal(t, segs[1], s.SelectForStage(segs, intp(3)))
}

func TestSelectForStageTruncates(t *testing.T) {
	s := newTestSegmenter()
	long := strings.Repeat("halo ", 400)
	got := s.SelectForStage([]string{long}, nil)
	assert.Equal(t, SnippetRunes, len([]rune(got)))
}
