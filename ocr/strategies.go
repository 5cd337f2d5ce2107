// ABOUTME: Handle-finding strategies evaluated in priority order
// ABOUTME: Each strategy is a pure function from header text to candidates
package ocr

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Strategy names, in chain order.
const (
	StrategyStartedConversation = "started-conversation"
	StrategyLabelAfterHandle    = "handle-business-chat"
	StrategyConversationWith    = "conversation-with"
	StrategyMention             = "mention"
	StrategyBackGlyph           = "back-glyph"
	StrategyDisplayName         = "display-name"
	StrategyFollowerCount       = "follower-count"
	StrategyJoined              = "joined"
	StrategyHeaderContext       = "header-context"
	StrategyPrefix500           = "prefix-500"
	StrategyPrefix200           = "prefix-200"
	StrategyPrefix150           = "prefix-150"
)

const (
	contextWindow       = 30
	displayNameRunes    = 300
	displayNameOverride = 150
)

const (
	lead  = `(?:^|[^A-Za-z0-9._@])`
	tok   = `([A-Za-z0-9._]{3,30})`
	trail = `(?:[^A-Za-z0-9._]|$)`
)

func buildStrategies(v *Vocabulary) []Strategy {
	started := regexp.MustCompile(`(?i)(?:memulai\s+obrolan\s+dengan|started\s+a\s+(?:conversation|chat)\s+with)\s+@?` + tok + trail)
	labelAfter := regexp.MustCompile(`(?i)` + lead + `@?` + tok + `\s+(?:` + v.convLabel + `)\b`)
	convWith := regexp.MustCompile(`(?i)\b(?:obrolan|chat|conversation)\s+(?:dengan|with|bisnis|business)\s+@?` + tok + trail)
	mention := regexp.MustCompile(`@` + tok + trail)
	back := regexp.MustCompile(`(?:` + v.backGlyph + `)\s*@?` + tok + trail)
	displayName := regexp.MustCompile(`(?:^|\s)[A-Z][A-Za-z'&]*(?:\s+[A-Z][A-Za-z'&]*)*\s+([a-z0-9._]{8,30})` + trail)
	follower := regexp.MustCompile(`(?i)` + lead + `([A-Za-z0-9._]{8,30})\s+(?:[\d.,]+\s*(?:rb|jt|k|m)?\s+)?(?:` + v.followerWord + `)\b`)
	joinedBefore := regexp.MustCompile(`(?i)` + lead + `([A-Za-z0-9._]{8,30})\s+(?:` + v.joinedWord + `)\b`)
	joinedAfter := regexp.MustCompile(`(?i)\b(?:` + v.joinedWord + `)\s+(?:sejak\s+|since\s+|in\s+)?(?:[a-z]+\s+)?\d{4}\s+([A-Za-z0-9._]{8,30})` + trail)

	return []Strategy{
		{Name: StrategyStartedConversation, Find: submatches(started), MinLen: MinHandleLength},
		{Name: StrategyLabelAfterHandle, Find: submatches(labelAfter), MinLen: MinHandleLength},
		{Name: StrategyConversationWith, Find: submatches(convWith), MinLen: MinHandleLength},
		{Name: StrategyMention, Find: submatches(mention), MinLen: MinHandleLength},
		{Name: StrategyBackGlyph, Find: submatches(back), MinLen: MinHandleLength},
		{Name: StrategyDisplayName, Find: displayNameFinder(v, displayName), MinLen: MinHandleLength, RequireShape: true},
		{Name: StrategyFollowerCount, Find: submatches(follower), MinLen: 10, RequireUnderscore: true},
		{Name: StrategyJoined, Find: merged(submatches(joinedBefore), submatches(joinedAfter)), MinLen: 10, RequireUnderscore: true},
		{Name: StrategyHeaderContext, Find: headerContextFinder(v), MinLen: 10, RequireUnderscore: true},
		{Name: StrategyPrefix500, Find: prefixFinder(v, 500, func(h string) bool { return strings.Contains(h, "_") }), MinLen: 10, RequireUnderscore: true},
		{Name: StrategyPrefix200, Find: prefixFinder(v, 200, func(h string) bool { return strings.ContainsAny(h, "_.") }), MinLen: MinHandleLength},
		{Name: StrategyPrefix150, Find: prefixFinder(v, 150, hasHandleShape), MinLen: MinHandleLength, RequireShape: true},
	}
}

// submatches returns the first capture group of every match.
func submatches(re *regexp.Regexp) func(string) []Candidate {
	return func(header string) []Candidate {
		var out []Candidate
		for _, m := range re.FindAllStringSubmatchIndex(header, -1) {
			if m[2] < 0 {
				continue
			}
			out = append(out, Candidate{Handle: header[m[2]:m[3]], Start: m[2], End: m[3]})
		}
		return out
	}
}

// merged concatenates finders and orders the result by position.
func merged(finders ...func(string) []Candidate) func(string) []Candidate {
	return func(header string) []Candidate {
		var out []Candidate
		for _, f := range finders {
			out = append(out, f(header)...)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
		return out
	}
}

// displayNameFinder looks for "Display Name handle" near the top. Matches in
// the first displayNameOverride runes are taken as is; later ones must not sit
// next to message vocabulary.
func displayNameFinder(v *Vocabulary, re *regexp.Regexp) func(string) []Candidate {
	find := submatches(re)
	return func(header string) []Candidate {
		window := truncateRunes(header, displayNameRunes)
		var out []Candidate
		for _, c := range find(window) {
			if utf8.RuneCountInString(window[:c.Start]) < displayNameOverride || !v.nearBody(window, c.Start, c.End) {
				out = append(out, c)
			}
		}
		return out
	}
}

// headerContextFinder scans every token and keeps those framed by header
// words such as "obrolan" or "pengikut" but not by message vocabulary.
func headerContextFinder(v *Vocabulary) func(string) []Candidate {
	return func(header string) []Candidate {
		var out []Candidate
		for _, c := range tokens(header, MinHandleLength) {
			ctx := contextAround(header, c.Start, c.End, contextWindow)
			if v.headerContext.MatchString(ctx) && !v.bodyKeyword.MatchString(ctx) {
				out = append(out, c)
			}
		}
		return out
	}
}

// prefixFinder scans only the first n runes, keeping tokens that pass keep
// and are not next to message vocabulary.
func prefixFinder(v *Vocabulary, n int, keep func(string) bool) func(string) []Candidate {
	return func(header string) []Candidate {
		prefix := truncateRunes(header, n)
		var out []Candidate
		for _, c := range tokens(prefix, MinHandleLength) {
			if keep(CleanHandle(c.Handle)) && !v.nearBody(prefix, c.Start, c.End) {
				out = append(out, c)
			}
		}
		return out
	}
}

// tokens returns maximal runs of handle characters at least min bytes long.
func tokens(s string, min int) []Candidate {
	var out []Candidate
	for _, m := range handleRun.FindAllStringIndex(s, -1) {
		if m[1]-m[0] >= min && m[1]-m[0] <= 40 {
			out = append(out, Candidate{Handle: s[m[0]:m[1]], Start: m[0], End: m[1]})
		}
	}
	return out
}

func (v *Vocabulary) nearBody(s string, start, end int) bool {
	return v.bodyKeyword.MatchString(contextAround(s, start, end, contextWindow))
}
