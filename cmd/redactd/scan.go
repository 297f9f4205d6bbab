package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/pii"
	"github.com/fyrsmithlabs/redactd/internal/redaction"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/spans"
)

type scanOutput struct {
	Detections []secrets.Detection `json:"detections"`
	Summary    string              `json:"summary"`
}

func newScanCmd() *cobra.Command {
	var gitleaks bool
	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Detect secrets in a file or stdin",
		Long: `Detect secrets in a file or stdin and print them as JSON. Values are
printed masked.

Examples:
  redactd scan .env
  cat deploy.log | redactd scan -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			cfg := secrets.DefaultConfig()
			cfg.GitleaksEnabled = gitleaks
			engine, err := newEngine(*cfg, zap.NewNop())
			if err != nil {
				return err
			}
			report, err := engine.Scan(cmd.Context(), text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scanOutput{Detections: report.Detections, Summary: report.Summary()})
		},
	}
	cmd.Flags().BoolVar(&gitleaks, "gitleaks", false, "also run the gitleaks rule pack")
	return cmd
}

func newRedactCmd() *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "redact [file]",
		Short: "Mask secrets and personal data in a file or stdin",
		Long: `Mask the secrets and personal data found in a file or stdin according to a
sensitivity level (0 public, 1 internal, 2 confidential, 3 secret) and print
the result. The output has the same length as the input.

Examples:
  redactd redact --level 2 notes.txt
  cat notes.txt | redactd redact -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !redaction.ValidLevel(level) {
				return fmt.Errorf("level must be between %d and %d", redaction.LevelPublic, redaction.LevelSecret)
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			detections, err := secrets.MustNewEngine(nil, nil, zap.NewNop()).Detect(ctx, text)
			if err != nil {
				return err
			}
			findings, err := pii.NewPatternDetector().DetectPII(ctx, text)
			if err != nil {
				return err
			}

			textSpans := spans.Build("", findings, detections)
			_, err = io.WriteString(cmd.OutOrStdout(), redaction.Redact(text, level, spans.ToRedaction(textSpans)))
			return err
		},
	}
	cmd.Flags().IntVar(&level, "level", redaction.LevelConfidential, "sensitivity level 0-3")
	return cmd
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, secrets.DefaultMaxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}
