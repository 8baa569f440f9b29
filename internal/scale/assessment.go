package scale

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Assessment is a saved scoring session. Field names match the persisted
// JSON layout. Records are never edited after creation.
type Assessment struct {
	// ID is a ULID generated at save time
	ID string `json:"id"`

	// Timestamp is milliseconds since the Unix epoch at save time
	Timestamp int64 `json:"timestamp"`

	TotalScore int      `json:"totalScore"`
	Severity   Severity `json:"severity"`

	// Items is a snapshot of the selections; it may be partial
	Items map[string]int `json:"items"`

	// Notes is trimmed free text, omitted when empty
	Notes string `json:"notes,omitempty"`
}

// Time returns the save time.
func (a Assessment) Time() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// Complete reports whether every catalog item was scored.
func (a Assessment) Complete() bool {
	for _, it := range catalog {
		if _, ok := a.Items[it.ID]; !ok {
			return false
		}
	}
	return true
}

// NewAssessment builds the record for a finished session at time now.
func NewAssessment(sel Selections, notes string, now time.Time) (Assessment, error) {
	id, err := NewAssessmentID(now)
	if err != nil {
		return Assessment{}, err
	}
	total := CalculateTotal(sel)
	return Assessment{
		ID:         id,
		Timestamp:  now.UnixMilli(),
		TotalScore: total,
		Severity:   ClassifySeverity(total),
		Items:      sel.Map(),
		Notes:      strings.TrimSpace(notes),
	}, nil
}

// NewAssessmentID generates a new ULID for the given time.
func NewAssessmentID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
