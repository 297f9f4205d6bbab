package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRegex indicates a rule pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allow-list file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")

	// ErrInputTooLarge indicates the text exceeds the configured scan limit.
	ErrInputTooLarge = errors.New("input exceeds maximum scan size")

	// ErrRuleTimeout indicates a rule did not finish within the per-rule budget.
	ErrRuleTimeout = errors.New("rule evaluation timed out")
)

// RuleError records a single rule that failed during a scan. The failing
// rule contributes no detections; the scan itself continues.
type RuleError struct {
	Type string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Type, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
