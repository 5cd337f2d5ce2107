// ABOUTME: Tests for handle extraction from screenshot headers
// ABOUTME: Exercises each strategy against fixed header strings plus the acceptance rules
package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultVocabulary())
}

func TestExtractStrategies(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		handle   string
		strategy string
	}{
		{"started conversation", "Anda memulai obrolan dengan kopi_senja88", "kopi_senja88", StrategyStartedConversation},
		{"english started conversation", "You started a chat with bakmi.jogja.99 today", "bakmi.jogja.99", StrategyStartedConversation},
		{"handle then business chat", "kopi.senja.jkt Obrolan bisnis Lihat profil", "kopi.senja.jkt", StrategyLabelAfterHandle},
		{"business chat then handle", "Business chat with warung.sedap Lihat profil", "warung.sedap", StrategyConversationWith},
		{"mention", "Profil @warung_ibu_sari 1.204 pengikut", "warung_ibu_sari", StrategyMention},
		{"back glyph", "< toko_kue_mama Aktif 5 menit lalu", "toko_kue_mama", StrategyBackGlyph},
		{"unicode back glyph", "← martabak.manis Aktif", "martabak.manis", StrategyBackGlyph},
		{"display name", "Kopi Senja kopisenja88 Aktif", "kopisenja88", StrategyDisplayName},
		{"follower count", "toko_roti_enak 2.300 pengikut 12 postingan", "toko_roti_enak", StrategyFollowerCount},
		{"joined", "bakso_pak_kumis Bergabung Maret 2021", "bakso_pak_kumis", StrategyJoined},
		{"header context", "profil sate_madura_asli terbaru", "sate_madura_asli", StrategyHeaderContext},
		{"prefix scan", "ayam_geprek_bensu 10.15", "ayam_geprek_bensu", StrategyPrefix500},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, strategy, ok := e.Extract(tt.header)
			require.True(t, ok)
			assert.Equal(t, tt.handle, handle)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestExtractStrategiesAreIndependent(t *testing.T) {
	e := newTestExtractor()
	byName := map[string]Strategy{}
	for _, s := range e.Strategies() {
		byName[s.Name] = s
	}
	require.Len(t, byName, 12)

	got := byName[StrategyMention].Find("hello @kopi_senja88 and @toko.roti")
	require.Len(t, got, 2)
	assert.Equal(t, "kopi_senja88", got[0].Handle)
	assert.Equal(t, "toko.roti", got[1].Handle)

	assert.Empty(t, byName[StrategyStartedConversation].Find("@kopi_senja88"))

	joined := byName[StrategyJoined].Find("Joined March 2020 nasi_uduk_betawi")
	require.Len(t, joined, 1)
	assert.Equal(t, "nasi_uduk_betawi", joined[0].Handle)
}

func TestExtractOrderPrefersHigherStrategy(t *testing.T) {
	e := newTestExtractor()
	handle, strategy, ok := e.Extract("< other_handle_xx Anda memulai obrolan dengan kopi_senja88")
	require.True(t, ok)
	assert.Equal(t, "kopi_senja88", handle)
	assert.Equal(t, StrategyStartedConversation, strategy)
}

func TestExtractHeaderWindowIsHardBoundary(t *testing.T) {
	e := newTestExtractor()
	filler := strings.Repeat("halo kak ", 120)
	_, _, ok := e.Extract(filler + " toko_bahagia_sekali 1.200 pengikut")
	assert.False(t, ok)

	handle, _, ok := e.Extract("toko_bahagia_sekali 1.200 pengikut " + filler)
	require.True(t, ok)
	assert.Equal(t, "toko_bahagia_sekali", handle)
}

func TestExtractRejectsStoplistAndShortCandidates(t *testing.T) {
	e := newTestExtractor()

	_, _, ok := e.Extract("Anda memulai obrolan dengan instagram")
	assert.False(t, ok)

	_, _, ok = e.Extract("@abc_12")
	assert.False(t, ok)

	_, _, ok = e.Extract("")
	assert.False(t, ok)
}

func TestExtractSkipsTokensNextToMessageVocabulary(t *testing.T) {
	e := newTestExtractor()
	_, _, ok := e.Extract("halo kak aku bhanu dari stiqr, cek aplikasi_kasir_gratis ya")
	assert.False(t, ok)
}

func TestExtractNormalizesUnicode(t *testing.T) {
	e := newTestExtractor()
	handle, strategy, ok := e.Extract("@ｋｏｐｉ＿ｓｅｎｊａ８８")
	require.True(t, ok)
	assert.Equal(t, "kopi_senja88", handle)
	assert.Equal(t, StrategyMention, strategy)
}

func TestExtractCleansTruncation(t *testing.T) {
	e := newTestExtractor()
	handle, _, ok := e.Extract("@bebekcaberawit_grandwis... Aktif")
	require.True(t, ok)
	assert.Equal(t, "bebekcaberawit_grandwis", handle)
}

func TestCleanHandle(t *testing.T) {
	assert.Equal(t, "kopi_senja", CleanHandle("Kopi_Senja.."))
	assert.Equal(t, "toko", CleanHandle("_toko."))
	assert.Equal(t, "abc", CleanHandle("abc…"))
	assert.Equal(t, "warung.ibu", CleanHandle("_warung.ibu_"))
}

func TestAcceptableIsStageIndependent(t *testing.T) {
	e := newTestExtractor()
	assert.True(t, e.Acceptable("warungibu"), "no underscore needed")
	assert.True(t, e.Acceptable("kopi_senja88"))
	assert.False(t, e.Acceptable("warung"), "too short")
	assert.False(t, e.Acceptable("12345678"), "no letter")
	assert.False(t, e.Acceptable("kopi-senja"), "invalid character")
	assert.False(t, e.Acceptable("transaksi"), "stoplisted")
}

func TestHeaderTruncatesRunes(t *testing.T) {
	h := Header(strings.Repeat("é ", 800))
	assert.Equal(t, HeaderRunes, len([]rune(h)))
}
