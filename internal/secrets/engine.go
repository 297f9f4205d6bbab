package secrets

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/redactd/internal/secrets"

// ExtendedScanner contributes extra candidates from an outside rule pack.
// Its matches take part in overlap resolution like any rule match.
type ExtendedScanner interface {
	Name() string
	Scan(text string) ([]Match, error)
}

// Engine applies a Registry to text. It holds no mutable state beyond
// metric instruments and is safe for concurrent use.
type Engine struct {
	registry *Registry
	config   *Config
	extended ExtendedScanner
	logger   *zap.Logger

	meter           metric.Meter
	detectionsTotal metric.Int64Counter
	failuresTotal   metric.Int64Counter
	scanDuration    metric.Float64Histogram
}

// Option customizes an Engine.
type Option func(*Engine)

// WithExtendedScanner adds an extra source of candidates.
func WithExtendedScanner(s ExtendedScanner) Option {
	return func(e *Engine) { e.extended = s }
}

// NewEngine creates an engine. A nil registry uses DefaultRegistry, a nil
// config uses DefaultConfig.
func NewEngine(registry *Registry, cfg *Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid secrets config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		registry: registry,
		config:   cfg,
		logger:   logger,
		meter:    otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.initMetrics()
	return e, nil
}

// MustNewEngine creates an engine, panicking on error.
func MustNewEngine(registry *Registry, cfg *Config, logger *zap.Logger, opts ...Option) *Engine {
	e, err := NewEngine(registry, cfg, logger, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) initMetrics() {
	var err error

	e.detectionsTotal, err = e.meter.Int64Counter(
		"redactd.secrets.detections_total",
		metric.WithDescription("Secrets accepted after overlap resolution, by type"),
		metric.WithUnit("{detection}"),
	)
	if err != nil {
		e.logger.Warn("failed to create detections counter", zap.Error(err))
	}

	e.failuresTotal, err = e.meter.Int64Counter(
		"redactd.secrets.rule_failures_total",
		metric.WithDescription("Rules skipped for a scan because evaluation failed, by type"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		e.logger.Warn("failed to create rule failure counter", zap.Error(err))
	}

	e.scanDuration, err = e.meter.Float64Histogram(
		"redactd.secrets.scan_duration_seconds",
		metric.WithDescription("Wall time of a full scan"),
		metric.WithUnit("s"),
	)
	if err != nil {
		e.logger.Warn("failed to create scan duration histogram", zap.Error(err))
	}
}

// Registry returns the engine's rule set.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Detect returns the resolved detections for text.
func (e *Engine) Detect(ctx context.Context, text string) ([]Detection, error) {
	report, err := e.Scan(ctx, text)
	if err != nil {
		return nil, err
	}
	return report.Detections, nil
}

// Scan evaluates every rule and returns the full report. Failing rules are
// recorded in the report and logged; only cancellation and oversized input
// are returned as errors.
func (e *Engine) Scan(ctx context.Context, text string) (*Report, error) {
	start := time.Now()
	report := &Report{Detections: []Detection{}}

	if len(text) > e.config.MaxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(text), e.config.MaxInputBytes)
	}
	if text == "" {
		return report, nil
	}

	index := newRuneIndex(text)
	var candidates []Detection

	for _, rule := range e.registry.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := e.evaluate(ctx, rule, text, index)
		if result.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			report.Failures = append(report.Failures, result.Err)
			e.logger.Warn("secret rule skipped",
				zap.String("rule", rule.Type),
				zap.Error(result.Err.Err),
			)
			if e.failuresTotal != nil {
				e.failuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", rule.Type)))
			}
			continue
		}
		candidates = append(candidates, result.Candidates...)
	}

	if e.extended != nil {
		matches, err := e.extended.Scan(text)
		if err != nil {
			e.logger.Warn("extended scanner failed",
				zap.String("scanner", e.extended.Name()),
				zap.Error(err),
			)
		}
		for _, m := range matches {
			candidates = append(candidates, index.detection(m))
		}
	}

	report.Candidates = len(candidates)
	report.Detections = ResolveOverlaps(candidates)
	report.Duration = time.Since(start)

	if e.detectionsTotal != nil {
		for _, d := range report.Detections {
			e.detectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", d.Type)))
		}
	}
	if e.scanDuration != nil {
		e.scanDuration.Record(ctx, report.Duration.Seconds())
	}

	return report, nil
}

type ruleOutcome struct {
	matches []Match
	err     error
}

// evaluate runs one rule in isolation. Panics and timeouts become a RuleError.
func (e *Engine) evaluate(ctx context.Context, rule *Rule, text string, index *runeIndex) RuleResult {
	result := RuleResult{Rule: rule}

	var outcome ruleOutcome
	if timeout := e.config.RuleTimeout; timeout > 0 {
		outcome = runWithTimeout(ctx, rule, text, timeout)
	} else {
		outcome = runGuarded(rule, text)
	}

	if outcome.err != nil {
		result.Err = &RuleError{Type: rule.Type, Err: outcome.err}
		return result
	}

	result.Candidates = make([]Detection, 0, len(outcome.matches))
	for _, m := range outcome.matches {
		result.Candidates = append(result.Candidates, index.detection(m))
	}
	return result
}

func runGuarded(rule *Rule, text string) (out ruleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = ruleOutcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return ruleOutcome{matches: rule.FindAll(text)}
}

// runWithTimeout abandons the rule when the deadline passes. Matching is
// linear-time, so an abandoned goroutine always finishes on its own.
func runWithTimeout(ctx context.Context, rule *Rule, text string, timeout time.Duration) ruleOutcome {
	done := make(chan ruleOutcome, 1)
	go func() {
		done <- runGuarded(rule, text)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out
	case <-timer.C:
		return ruleOutcome{err: fmt.Errorf("%w after %s", ErrRuleTimeout, timeout)}
	case <-ctx.Done():
		return ruleOutcome{err: ctx.Err()}
	}
}
