package scale

import (
	"maps"
	"slices"

	"github.com/hpungsan/nihss/internal/errors"
)

// Selections is a possibly partial set of chosen scores keyed by item id.
// Every key is a catalog id and every value is one of that item's option
// values; Set and NewSelections reject anything else.
// The zero value is an empty, usable set.
type Selections struct {
	values map[string]int
}

// NewSelections validates raw against the catalog.
func NewSelections(raw map[string]int) (Selections, error) {
	var s Selections
	// Deterministic order so the first reported error is stable.
	for _, id := range slices.Sorted(maps.Keys(raw)) {
		if err := s.Set(id, raw[id]); err != nil {
			return Selections{}, err
		}
	}
	return s, nil
}

// Set records the chosen score for an item, replacing any earlier choice.
func (s *Selections) Set(itemID string, value int) error {
	it, ok := ItemByID(itemID)
	if !ok {
		return errors.NewUnknownItem(itemID)
	}
	if _, ok := it.Option(value); !ok {
		return errors.NewInvalidScore(itemID, value, it.Values())
	}
	if s.values == nil {
		s.values = make(map[string]int, len(catalog))
	}
	s.values[itemID] = value
	return nil
}

// Unset removes the choice for an item. Removing an absent item is a no-op.
func (s *Selections) Unset(itemID string) {
	delete(s.values, itemID)
}

// Get returns the chosen score for an item.
func (s Selections) Get(itemID string) (int, bool) {
	v, ok := s.values[itemID]
	return v, ok
}

// Len is the number of scored items.
func (s Selections) Len() int {
	return len(s.values)
}

// Map returns a copy of the selections as a plain map.
func (s Selections) Map() map[string]int {
	out := make(map[string]int, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Total is shorthand for CalculateTotal(s).
func (s Selections) Total() int {
	return CalculateTotal(s)
}

// CalculateTotal sums every chosen score. Unscored items contribute 0.
func CalculateTotal(s Selections) int {
	total := 0
	for _, v := range s.values {
		total += v
	}
	return total
}

// IsComplete reports whether every catalog item has a score.
func IsComplete(s Selections) bool {
	return len(Missing(s)) == 0
}

// Missing returns the ids of unscored items in catalog order.
func Missing(s Selections) []string {
	var missing []string
	for _, it := range catalog {
		if _, ok := s.values[it.ID]; !ok {
			missing = append(missing, it.ID)
		}
	}
	return missing
}
