package secrets

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Rule is a compiled detection rule. Rules are immutable once built.
type Rule struct {
	Type        string
	Description string
	Severity    Severity

	pattern     *regexp.Regexp
	secretGroup int
	allowList   []string // lower-cased
}

// Registry is the immutable, shared set of compiled rules.
type Registry struct {
	rules []*Rule
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry built from DefaultRules.
// It is built on first use and panics if a built-in pattern fails to compile.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := NewRegistry(DefaultRules(), nil)
		if err != nil {
			panic(fmt.Sprintf("secrets: built-in rules: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// NewRegistry compiles specs into a registry. Entries from extra are merged
// into the rule allow-lists before the registry is sealed; extra may be nil.
func NewRegistry(specs []RuleSpec, extra *AllowList) (*Registry, error) {
	rules := make([]*Rule, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for i, spec := range specs {
		if spec.Type == "" {
			return nil, fmt.Errorf("rule %d: type is required", i)
		}
		if seen[spec.Type] {
			return nil, fmt.Errorf("rule %s: duplicate type", spec.Type)
		}
		seen[spec.Type] = true
		if spec.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", spec.Type)
		}
		if !spec.Severity.Valid() {
			return nil, fmt.Errorf("rule %s: unknown severity %q", spec.Type, spec.Severity)
		}

		pattern, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w: %v", spec.Type, ErrInvalidRegex, err)
		}

		allow := make([]string, 0, len(spec.AllowList))
		allow = appendLower(allow, spec.AllowList)
		if extra != nil {
			allow = appendLower(allow, extra.Global)
			allow = appendLower(allow, extra.Rules[spec.Type])
		}

		rules = append(rules, &Rule{
			Type:        spec.Type,
			Description: spec.Description,
			Severity:    spec.Severity,
			pattern:     pattern,
			secretGroup: pattern.SubexpIndex("secret"),
			allowList:   allow,
		})
	}

	return &Registry{rules: rules}, nil
}

// Rules returns the registered rules in evaluation order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Lookup returns the rule with the given type tag.
func (r *Registry) Lookup(ruleType string) (*Rule, bool) {
	for _, rule := range r.rules {
		if rule.Type == ruleType {
			return rule, true
		}
	}
	return nil, false
}

// Match is a raw rule hit expressed in byte offsets.
type Match struct {
	Type     string
	Severity Severity
	Start    int
	End      int
	Value    string
}

// FindAll evaluates the rule against text and returns every match that is
// not allow-listed. Offsets are byte offsets.
func (r *Rule) FindAll(text string) []Match {
	locs := r.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if g := r.secretGroup; g > 0 && loc[2*g] >= 0 && loc[2*g+1] > loc[2*g] {
			start, end = loc[2*g], loc[2*g+1]
		}
		if start >= end {
			continue
		}
		value := text[start:end]
		if r.Allowed(value) {
			continue
		}
		matches = append(matches, Match{
			Type:     r.Type,
			Severity: r.Severity,
			Start:    start,
			End:      end,
			Value:    value,
		})
	}
	return matches
}

// Allowed reports whether value is a known placeholder for this rule:
// it equals or contains an allow-list entry, ignoring case.
func (r *Rule) Allowed(value string) bool {
	if len(r.allowList) == 0 {
		return false
	}
	lower := strings.ToLower(value)
	for _, entry := range r.allowList {
		if lower == entry || strings.Contains(lower, entry) {
			return true
		}
	}
	return false
}

func appendLower(dst []string, values []string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			dst = append(dst, strings.ToLower(v))
		}
	}
	return dst
}
