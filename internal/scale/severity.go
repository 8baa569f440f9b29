package scale

import "fmt"

// Severity is the band a total score falls into.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Band bounds are inclusive. The severe band has no upper bound in
// classification; Max is only the display ceiling.
type Band struct {
	Severity Severity `json:"severity"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	Label    string   `json:"label"`
}

var severityLabels = map[Severity]string{
	SeverityMinor:    "No Stroke (0)",
	SeverityMild:     "Mild (1-4)",
	SeverityModerate: "Moderate (5-15)",
	SeveritySevere:   "Severe (16-42)",
}

// ClassifySeverity maps a total score to its band.
// Negative totals cannot come from the catalog; they classify as minor.
func ClassifySeverity(total int) Severity {
	switch {
	case total <= 0:
		return SeverityMinor
	case total <= 4:
		return SeverityMild
	case total <= 15:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// Label returns the display string for the band.
func (s Severity) Label() string {
	return severityLabels[s]
}

// Valid reports whether s is one of the four bands.
func (s Severity) Valid() bool {
	_, ok := severityLabels[s]
	return ok
}

// ParseSeverity validates a stored severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Bands lists the four bands in ascending order.
func Bands() []Band {
	return []Band{
		{Severity: SeverityMinor, Min: 0, Max: 0, Label: SeverityMinor.Label()},
		{Severity: SeverityMild, Min: 1, Max: 4, Label: SeverityMild.Label()},
		{Severity: SeverityModerate, Min: 5, Max: 15, Label: SeverityModerate.Label()},
		{Severity: SeveritySevere, Min: 16, Max: MaxTotal(), Label: SeveritySevere.Label()},
	}
}
