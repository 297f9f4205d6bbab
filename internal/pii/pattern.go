package pii

import (
	"context"
	"regexp"
	"sort"
	"unicode/utf8"
)

// Built-in PII types.
const (
	TypeEmail      = "EMAIL"
	TypeSSN        = "SSN"
	TypeCreditCard = "CREDIT_CARD"
	TypePhone      = "PHONE"
	TypeIPAddress  = "IP_ADDRESS"
)

type pattern struct {
	typ        string
	re         *regexp.Regexp
	confidence float64
	validate   func(string) bool
}

// Ordered by precedence: an earlier pattern claims text before later ones.
var builtinPatterns = []pattern{
	{TypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), 0.95, nil},
	{TypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), 0.90, nil},
	{TypeCreditCard, regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{1,7}\b`), 0.85, luhnValid},
	{TypePhone, regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\b\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`), 0.75, nil},
	{TypeIPAddress, regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`), 0.60, nil},
}

// PatternDetector finds common PII shapes with regular expressions.
// Findings never overlap.
type PatternDetector struct {
	patterns []pattern
}

// NewPatternDetector returns a detector with the built-in patterns.
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{patterns: builtinPatterns}
}

// DetectPII implements Detector.
func (d *PatternDetector) DetectPII(ctx context.Context, text string) ([]Finding, error) {
	findings := []Finding{}
	if text == "" {
		return findings, nil
	}

	var claimed [][2]int // byte intervals
	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && c[0] < end {
				return true
			}
		}
		return false
	}

	for _, p := range d.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if overlaps(start, end) {
				continue
			}
			if p.validate != nil && !p.validate(text[start:end]) {
				continue
			}
			claimed = append(claimed, [2]int{start, end})
			findings = append(findings, Finding{
				Start:      utf8.RuneCountInString(text[:start]),
				End:        utf8.RuneCountInString(text[:end]),
				Type:       p.typ,
				Confidence: p.confidence,
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Start < findings[j].Start })
	return findings, nil
}

// luhnValid reports whether the digits of s pass the Luhn checksum.
func luhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
