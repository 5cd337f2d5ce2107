// ABOUTME: Cycle status enum with normalization of legacy vocabulary
// ABOUTME: Maps historical synonyms onto four canonical states at the data boundary
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// CycleStatus is the lifecycle state of a canvassing cycle.
type CycleStatus string

const (
	StatusActive    CycleStatus = "active"
	StatusOngoing   CycleStatus = "ongoing"
	StatusConverted CycleStatus = "converted"
	StatusRejected  CycleStatus = "rejected"
)

// ActiveLikeStatuses lists the statuses that count as an open cycle.
var ActiveLikeStatuses = []CycleStatus{StatusActive, StatusOngoing}

var statusAliases = map[string]CycleStatus{
	"active":             StatusActive,
	"aktif":              StatusActive,
	"ongoing":            StatusOngoing,
	"in_progress":        StatusOngoing,
	"in progress":        StatusOngoing,
	"sedang berlangsung": StatusOngoing,
	"tertarik":           StatusOngoing,
	"converted":          StatusConverted,
	"completed":          StatusConverted,
	"success":            StatusConverted,
	"menerima":           StatusConverted,
	"rejected":           StatusRejected,
	"invalid":            StatusRejected,
	"failed":             StatusRejected,
	"menolak":            StatusRejected,
}

// ParseCycleStatus maps any known spelling of a status onto its canonical value.
func ParseCycleStatus(raw string) (CycleStatus, error) {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown cycle status: %q", raw)
}

// IsActiveLike reports whether the cycle is still open for follow-ups.
func (s CycleStatus) IsActiveLike() bool {
	return s == StatusActive || s == StatusOngoing
}

// IsTerminal reports whether the cycle has been closed.
func (s CycleStatus) IsTerminal() bool {
	return s == StatusConverted || s == StatusRejected
}

func (s CycleStatus) String() string { return string(s) }

// Scan normalizes stored values so legacy rows read as canonical statuses.
func (s *CycleStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = StatusActive
		return nil
	default:
		return fmt.Errorf("cannot scan %T into CycleStatus", src)
	}

	parsed, err := ParseCycleStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s CycleStatus) Value() (driver.Value, error) {
	if s == "" {
		return string(StatusActive), nil
	}
	return string(s), nil
}
