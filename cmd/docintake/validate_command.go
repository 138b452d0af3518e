package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"docintake/internal/conflicts"
	"docintake/internal/intake"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <key-values.toml>",
		Short: "Check extracted key-values against the data-conflict rules",
		Long: "Reads a TOML file of field = value pairs (for example so_hieu, ngay_ban_hanh,\n" +
			"so_luong) and reports every data conflict the rules find.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			values, err := readKeyValues(args[0])
			if err != nil {
				return err
			}
			cutoff, err := cfg.IssueDateCutoffAt(time.Now())
			if err != nil {
				return err
			}
			report := conflicts.New(cutoff).Report(values)

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			if len(report.Conflicts) == 0 {
				fmt.Fprintf(out, "No data conflicts in %d fields\n", len(values))
				return nil
			}
			fmt.Fprintln(out, renderConflictTable(report.Conflicts))
			fmt.Fprintf(out, "%d conflict(s), %d blocking\n", len(report.Conflicts), report.BlockingCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

// readKeyValues decodes a flat TOML table into a key-value set. Non-string
// values are rendered with their TOML text form.
func readKeyValues(path string) (intake.KeyValueSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key-values: %w", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse key-values: %w", err)
	}
	values := make(intake.KeyValueSet, len(decoded))
	for key, value := range decoded {
		key = strings.TrimSpace(key)
		switch v := value.(type) {
		case string:
			values[key] = intake.KeyValue{Value: v}
		case map[string]any, []any:
			return nil, fmt.Errorf("field %q: nested values are not supported", key)
		default:
			values[key] = intake.KeyValue{Value: fmt.Sprint(v)}
		}
	}
	return values, nil
}
