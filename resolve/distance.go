// ABOUTME: Edit distance and fuzzy thresholds for matching OCR handle readings
// ABOUTME: Scores candidates and selects one deterministically with an active-cycle preference
package resolve

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Threshold is the largest distance accepted for an input of this length.
func Threshold(input string) int {
	n := len([]rune(input))
	switch {
	case n < 8:
		return 1
	case n < 15:
		return 2
	default:
		return 3
	}
}

// alnum strips every non-alphanumeric rune.
func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Distance compares two handles. Handles that differ only in separators
// count as identical once the remaining text is long enough.
func Distance(a, b string) int {
	na := alnum(a)
	if len(na) > 5 && na == alnum(b) {
		return 0
	}
	return Levenshtein(a, b)
}

// candidate is a scored prospect match.
type candidate struct {
	ProspectID uuid.UUID
	Handle     string
	Distance   int
	Active     bool
	Source     string
}

// selectCandidate returns the closest candidate, except that a candidate
// with an active cycle for the staff wins when it is within one edit of the
// closest. Remaining ties break on handle then ID so the choice is stable.
func selectCandidate(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	sorted := append([]candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Active != b.Active {
			return a.Active
		}
		if a.Handle != b.Handle {
			return a.Handle < b.Handle
		}
		return a.ProspectID.String() < b.ProspectID.String()
	})

	best := sorted[0]
	if best.Active {
		return best, true
	}
	for _, c := range sorted[1:] {
		if c.Distance > best.Distance+1 {
			break
		}
		if c.Active {
			return c, true
		}
	}
	return best, true
}
