package redaction

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Label prefixes.
const (
	PrefixPII    = "PII_"
	PrefixSecret = "SECRET_"
)

// Mask runes by label category.
const (
	MaskSecret  = '█'
	MaskPII     = '●'
	MaskUnknown = '▓'
)

// Span is a labelled half-open rune interval [Start, End) of a text.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Redact masks the spans of text that the level's policy hides. Spans that
// fall outside the text or are empty are skipped. Redact never fails and
// never changes the rune length of text.
func Redact(text string, level int, spans []Span) string {
	if text == "" || len(spans) == 0 {
		return text
	}
	return Apply(text, ForLevel(level), spans)
}

// Apply is Redact with an explicit policy. Offsets count runes as
// utf8.RuneCountInString does, so each invalid byte is one rune. Text outside
// the masked runes is returned byte for byte.
func Apply(text string, policy Policy, spans []Span) string {
	if text == "" || len(spans) == 0 || (!policy.MaskPII && !policy.MaskSecrets) {
		return text
	}

	n := utf8.RuneCountInString(text)
	masked := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			continue
		}
		if policy.Masks(s.Label) {
			masked = append(masked, s)
		}
	}
	if len(masked) == 0 {
		return text
	}
	sort.SliceStable(masked, func(i, j int) bool {
		return masked[i].Start > masked[j].Start
	})

	runes := make([]rune, 0, n)
	offsets := make([]int, 0, n+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))

	changed := make([]bool, n)
	for _, s := range masked {
		replacement := maskSegment(runes[s.Start:s.End], s.Label)
		for i, r := range replacement {
			if runes[s.Start+i] != r {
				runes[s.Start+i] = r
				changed[s.Start+i] = true
			}
		}
	}

	var b strings.Builder
	b.Grow(len(text) + 2*n)
	for i := 0; i < n; i++ {
		if changed[i] {
			b.WriteRune(runes[i])
			continue
		}
		b.WriteString(text[offsets[i]:offsets[i+1]])
	}
	return b.String()
}

// Masks reports whether the policy hides spans with this label. Prefixes
// match case-sensitively.
func (p Policy) Masks(label string) bool {
	switch {
	case strings.HasPrefix(label, PrefixPII):
		return p.MaskPII
	case strings.HasPrefix(label, PrefixSecret):
		return p.MaskSecrets
	default:
		return false
	}
}

// MaskRune returns the glyph used to hide text under label.
func MaskRune(label string) rune {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, "SECRET"):
		return MaskSecret
	case strings.Contains(upper, "PII"):
		return MaskPII
	default:
		return MaskUnknown
	}
}

// maskSegment returns a replacement with exactly len(original) runes.
func maskSegment(original []rune, label string) []rune {
	n := len(original)
	mask := MaskRune(label)
	upper := strings.ToUpper(label)

	if n <= 3 {
		return fill(n, mask)
	}

	if strings.Contains(upper, "EMAIL") {
		if at := indexRune(original, '@'); at >= 0 {
			out := make([]rune, n)
			copy(out, original)
			for i := 1; i < at; i++ {
				out[i] = mask
			}
			return out
		}
	}

	if strings.Contains(upper, "PHONE") {
		var digits []rune
		for _, r := range original {
			if unicode.IsDigit(r) {
				digits = append(digits, r)
			}
		}
		if len(digits) >= 4 {
			out := fill(n-4, mask)
			return append(out, digits[len(digits)-4:]...)
		}
	}

	if n >= 6 {
		out := fill(n, mask)
		out[0] = original[0]
		out[n-1] = original[n-1]
		return out
	}

	return fill(n, mask)
}

func fill(n int, r rune) []rune {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func indexRune(rs []rune, target rune) int {
	for i, r := range rs {
		if r == target {
			return i
		}
	}
	return -1
}
