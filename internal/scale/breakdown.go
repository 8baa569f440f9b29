package scale

// Row is one line of a per-item review.
type Row struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Scored   bool   `json:"scored"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Label    string `json:"label,omitempty"`
}

// Breakdown lists every catalog item in order with the score chosen in items.
// Unscored items have Scored=false. Values that are not options of the item
// (possible only in hand-edited history) keep their score but get no label.
func Breakdown(items map[string]int) []Row {
	rows := make([]Row, 0, len(catalog))
	for _, it := range catalog {
		row := Row{
			ItemID:   it.ID,
			Name:     it.Name,
			MaxScore: it.MaxScore,
		}
		if v, ok := items[it.ID]; ok {
			row.Scored = true
			row.Score = v
			if o, ok := it.Option(v); ok {
				row.Label = o.Label
			}
		}
		rows = append(rows, row)
	}
	return rows
}
