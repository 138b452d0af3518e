package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docintake/internal/intake"
	"docintake/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the pipeline run audit",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var documentID string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), strings.TrimSpace(documentID), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(runs))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "Only show runs for this document ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its stage results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				record, err := st.GetRun(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, record)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:       %s\n", record.ID)
				fmt.Fprintf(out, "Document:  %s\n", record.DocumentID)
				fmt.Fprintf(out, "Actor:     %s\n", valueOr(record.Actor, "-"))
				fmt.Fprintf(out, "Status:    %s\n", record.Status)
				fmt.Fprintf(out, "Started:   %s\n", formatDate(record.StartedAt))
				fmt.Fprintf(out, "Finished:  %s\n", formatDate(record.FinishedAt))
				if record.ErrorKind != "" {
					fmt.Fprintf(out, "Error:     %s: %s\n", record.ErrorKind, record.ErrorText)
				}
				if len(record.Stages) > 0 {
					fmt.Fprintln(out, renderStageTable(record.Stages))
				}
				if record.Routing != nil {
					fmt.Fprintln(out)
					printDecision(out, *record.Routing)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run as JSON")
	return cmd
}

func renderRunTable(runs []intake.RunRecord) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		lastStage := "-"
		if n := len(r.Stages); n > 0 {
			lastStage = string(r.Stages[n-1].Name)
		}
		rows = append(rows, []string{
			r.ID,
			r.DocumentID,
			string(r.Status),
			lastStage,
			valueOr(r.Actor, "-"),
			formatDate(r.StartedAt),
		})
	}
	return renderTable([]string{"Run", "Document", "Status", "Last stage", "Actor", "Started"}, rows, nil)
}
