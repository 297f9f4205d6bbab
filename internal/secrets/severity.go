package secrets

import "strings"

// Severity ranks how damaging a leaked secret is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Score returns the ordinal used for overlap tie-breaking.
// Unknown severities score 0.
func (s Severity) Score() int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Confidence returns the span confidence assigned to a detection of this severity.
func (s Severity) Confidence() float64 {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 0.95
	case SeverityHigh:
		return 0.85
	case SeverityMedium:
		return 0.70
	case SeverityLow:
		return 0.50
	default:
		return 0.60
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Score() > 0
}
