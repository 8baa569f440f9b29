// Package form holds the in-memory state of one scoring session: the
// selections made so far and the notes, until they are saved as an
// assessment or discarded.
package form

import (
	"time"

	"github.com/hpungsan/nihss/internal/errors"
	"github.com/hpungsan/nihss/internal/scale"
)

// Saver persists a finished assessment. *history.Store implements it.
type Saver interface {
	Save(a scale.Assessment) error
}

// Session is an editing session. It is not safe for concurrent use.
type Session struct {
	sel   scale.Selections
	notes string

	// RequireComplete makes Save refuse sessions with unscored items.
	RequireComplete bool

	now func() time.Time
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// FromSelections starts a session prefilled with a copy of sel and notes.
func FromSelections(sel scale.Selections, notes string) *Session {
	s := NewSession()
	for id, v := range sel.Map() {
		// sel only holds catalog ids and option values.
		_ = s.Select(id, v)
	}
	s.notes = notes
	return s
}

// WithClock overrides the clock used for save timestamps.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Select chooses a score for an item, replacing any earlier choice.
func (s *Session) Select(itemID string, value int) error {
	return s.sel.Set(itemID, value)
}

// Unselect clears the choice for an item.
func (s *Session) Unselect(itemID string) {
	s.sel.Unset(itemID)
}

// Selected returns the chosen score for an item.
func (s *Session) Selected(itemID string) (int, bool) {
	return s.sel.Get(itemID)
}

// SetNotes replaces the free-text notes. Notes are trimmed at save time.
func (s *Session) SetNotes(notes string) {
	s.notes = notes
}

// Notes returns the current notes as entered.
func (s *Session) Notes() string {
	return s.notes
}

// Reset discards all selections and notes.
func (s *Session) Reset() {
	s.sel = scale.Selections{}
	s.notes = ""
}

func (s *Session) Total() int               { return scale.CalculateTotal(s.sel) }
func (s *Session) Severity() scale.Severity { return scale.ClassifySeverity(s.Total()) }
func (s *Session) Answered() int            { return s.sel.Len() }
func (s *Session) Remaining() []string      { return scale.Missing(s.sel) }
func (s *Session) Complete() bool           { return scale.IsComplete(s.sel) }

// Selections returns a copy of the current selections.
func (s *Session) Selections() map[string]int {
	return s.sel.Map()
}

// Save builds the assessment, persists it through store and resets the
// session. On error the session is left unchanged.
func (s *Session) Save(store Saver) (scale.Assessment, error) {
	if s.RequireComplete && !s.Complete() {
		return scale.Assessment{}, errors.NewIncomplete(s.Remaining())
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	a, err := scale.NewAssessment(s.sel, s.notes, now())
	if err != nil {
		return scale.Assessment{}, errors.NewInternal(err)
	}
	if err := store.Save(a); err != nil {
		return scale.Assessment{}, err
	}

	s.Reset()
	return a, nil
}
