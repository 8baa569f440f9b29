package history

import "github.com/hpungsan/nihss/internal/scale"

// Summary aggregates a history collection for list headers.
type Summary struct {
	Count      int                    `json:"count"`
	Partial    int                    `json:"partial"`
	BySeverity map[scale.Severity]int `json:"by_severity"`
	Latest     *scale.Assessment      `json:"latest,omitempty"`
}

// Summarize counts records by severity. records must be newest first.
func Summarize(records []scale.Assessment) Summary {
	sum := Summary{
		Count: len(records),
		BySeverity: map[scale.Severity]int{
			scale.SeverityMinor:    0,
			scale.SeverityMild:     0,
			scale.SeverityModerate: 0,
			scale.SeveritySevere:   0,
		},
	}
	for _, a := range records {
		sum.BySeverity[a.Severity]++
		if !a.Complete() {
			sum.Partial++
		}
	}
	if len(records) > 0 {
		latest := records[0]
		sum.Latest = &latest
	}
	return sum
}
