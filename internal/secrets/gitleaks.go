package secrets

import (
	"fmt"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// GitleaksScanner runs the gitleaks default rule pack as an extended scanner.
// Its matches are typed GITLEAKS_<RULE_ID> and ranked high.
type GitleaksScanner struct {
	stopWords []string
	allow     *AllowList
}

// NewGitleaksScanner creates a scanner. Global allow-list entries become
// gitleaks stop words. Matches are also dropped when the global entries or
// the entries listed under their GITLEAKS_<RULE_ID> type allow them, with
// the same matching as builtin rules. allow may be nil.
func NewGitleaksScanner(allow *AllowList) *GitleaksScanner {
	s := &GitleaksScanner{allow: allow}
	if allow != nil {
		s.stopWords = append(s.stopWords, allow.Global...)
	}
	return s
}

// ruleFor returns an allow-list-only rule for a gitleaks match type.
func (s *GitleaksScanner) ruleFor(ruleType string) *Rule {
	r := &Rule{Type: ruleType, Severity: SeverityHigh}
	if s.allow != nil {
		r.allowList = appendLower(r.allowList, s.allow.Global)
		r.allowList = appendLower(r.allowList, s.allow.Rules[ruleType])
	}
	return r
}

// Name implements ExtendedScanner.
func (s *GitleaksScanner) Name() string {
	return "gitleaks"
}

// Scan implements ExtendedScanner. A detector is built per call because
// gitleaks detectors accumulate findings across calls.
func (s *GitleaksScanner) Scan(text string) ([]Match, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("create gitleaks detector: %w", err)
	}
	if len(s.stopWords) > 0 {
		detector.Config.Allowlists = append(detector.Config.Allowlists, &gitleaksConfig.Allowlist{
			Description: "redactd allowlist",
			StopWords:   s.stopWords,
		})
	}

	findings := detector.DetectString(text)
	matches := make([]Match, 0, len(findings))
	seen := make(map[[2]int]bool)
	rules := make(map[string]*Rule)

	for _, f := range findings {
		value := f.Secret
		if value == "" {
			value = f.Match
		}
		if value == "" {
			continue
		}
		ruleType := "GITLEAKS_" + strings.ToUpper(strings.ReplaceAll(f.RuleID, "-", "_"))
		rule, ok := rules[ruleType]
		if !ok {
			rule = s.ruleFor(ruleType)
			rules[ruleType] = rule
		}
		if rule.Allowed(value) {
			continue
		}

		// Findings carry line/column positions; every occurrence of the
		// secret value in the text is reported instead.
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], value)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(value)
			from = end

			key := [2]int{start, end}
			if seen[key] {
				continue
			}
			seen[key] = true
			matches = append(matches, Match{
				Type:     ruleType,
				Severity: SeverityHigh,
				Start:    start,
				End:      end,
				Value:    value,
			})
		}
	}
	return matches, nil
}
