package secrets

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Detection is a secret found in scanned text. Start and End are rune
// offsets with 0 <= Start < End <= rune length of the text.
type Detection struct {
	Type        string   `json:"type"`
	MaskedValue string   `json:"masked_value"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Severity    Severity `json:"severity"`
}

// Intersects reports whether the half-open intervals of d and o overlap.
func (d Detection) Intersects(o Detection) bool {
	return d.Start < o.End && o.Start < d.End
}

// RuleResult is the outcome of evaluating one rule: either candidates or an error.
type RuleResult struct {
	Rule       *Rule
	Candidates []Detection
	Err        *RuleError
}

// Report is the full outcome of a scan.
type Report struct {
	// Detections is the resolved, start-ordered, non-overlapping set.
	Detections []Detection `json:"detections"`

	// Failures lists rules that were skipped for this call.
	Failures []*RuleError `json:"-"`

	// Candidates is the number of matches before overlap resolution.
	Candidates int `json:"candidates"`

	Duration time.Duration `json:"duration"`
}

// HasDetections returns true if any secrets were found.
func (r *Report) HasDetections() bool {
	return len(r.Detections) > 0
}

// BySeverity returns detections filtered by severity.
func (r *Report) BySeverity(severity Severity) []Detection {
	var filtered []Detection
	for _, d := range r.Detections {
		if d.Severity == severity {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Summary returns a brief summary keyed on the worst severity found.
func (r *Report) Summary() string {
	if !r.HasDetections() {
		return "no secrets detected"
	}
	worst := Severity("")
	for _, d := range r.Detections {
		if d.Severity.Score() > worst.Score() {
			worst = d.Severity
		}
	}
	if worst == "" {
		return "secrets detected"
	}
	return "secrets detected (" + string(worst) + " severity)"
}

// MaskValue renders a preview of a secret: values of at most 8 runes are
// fully masked, longer values keep their first and last 4 runes.
func MaskValue(value string) string {
	runes := []rune(value)
	n := len(runes)
	if n <= 8 {
		return strings.Repeat("*", n)
	}
	return string(runes[:4]) + strings.Repeat("*", n-8) + string(runes[n-4:])
}

// runeIndex converts byte offsets of a string into rune offsets.
type runeIndex struct {
	ascii bool
	text  string
}

func newRuneIndex(text string) *runeIndex {
	return &runeIndex{
		ascii: utf8.RuneCountInString(text) == len(text),
		text:  text,
	}
}

// offset returns the rune offset of byte offset b. b must fall on a rune boundary.
func (x *runeIndex) offset(b int) int {
	if x.ascii {
		return b
	}
	return utf8.RuneCountInString(x.text[:b])
}

// detection converts a byte-offset match into a Detection.
func (x *runeIndex) detection(m Match) Detection {
	return Detection{
		Type:        m.Type,
		MaskedValue: MaskValue(m.Value),
		Start:       x.offset(m.Start),
		End:         x.offset(m.End),
		Severity:    m.Severity,
	}
}
