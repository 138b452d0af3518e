package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docintake/internal/intake"
	"docintake/internal/workflow"
)

func printRunResult(cmd *cobra.Command, result workflow.Result, colorize bool) {
	out := cmd.OutOrStdout()
	run := result.Run

	printSection(out, "Run", colorize)
	fmt.Fprintf(out, "ID:        %s\n", valueOr(run.ID, "-"))
	fmt.Fprintf(out, "Document:  %s\n", valueOr(run.DocumentID, "-"))
	fmt.Fprintf(out, "Status:    %s\n", valueOr(string(run.Status), "-"))
	if run.ErrorKind != "" {
		fmt.Fprintf(out, "Error:     %s: %s\n", run.ErrorKind, run.ErrorText)
	}
	if result.StoredDocumentID != "" {
		fmt.Fprintf(out, "Stored as: %s\n", result.StoredDocumentID)
	}
	if result.Draft {
		fmt.Fprintln(out, "Saved as draft; distribution did not run")
	}

	if len(run.Stages) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderStageTable(run.Stages))
	}

	if result.DuplicateBlock != nil || len(result.Duplicates) > 0 {
		matches := result.Duplicates
		if result.DuplicateBlock != nil {
			matches = result.DuplicateBlock.Matches
		}
		printSection(out, "Duplicate matches", colorize)
		fmt.Fprintln(out, renderMatchTable(matches))
		if result.DuplicateBlock != nil {
			fmt.Fprintln(out, "Re-run with --duplicate-decision cancel, new_version, or proceed")
		}
	}

	if len(result.Conflicts) > 0 {
		printSection(out, "Data conflicts", colorize)
		fmt.Fprintln(out, renderConflictTable(result.Conflicts))
	}
	if len(result.MissingFields) > 0 {
		fmt.Fprintf(out, "Missing fields: %s\n", strings.Join(result.MissingFields, ", "))
	}

	if result.Metadata != nil {
		printSection(out, "Metadata", colorize)
		printMetadata(out, *result.Metadata)
	}

	if result.Routing != nil {
		printSection(out, "Routing", colorize)
		printDecision(out, *result.Routing)
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printMetadata(out io.Writer, m intake.Metadata) {
	fmt.Fprintf(out, "Title:           %s\n", valueOr(m.Title, "-"))
	fmt.Fprintf(out, "Category:        %s\n", valueOr(m.Category, "-"))
	fmt.Fprintf(out, "Confidentiality: %s\n", valueOr(m.Confidentiality, "-"))
	if m.Urgency != "" {
		fmt.Fprintf(out, "Urgency:         %s\n", m.Urgency)
	}
	if m.Security != "" {
		fmt.Fprintf(out, "Security:        %s\n", m.Security)
	}
	if len(m.Tags) > 0 {
		fmt.Fprintf(out, "Tags:            %s\n", strings.Join(m.Tags, ", "))
	}
	if len(m.KeyValues) > 0 {
		rows := make([][]string, 0, len(m.KeyValues))
		for _, key := range m.KeyValues.Keys() {
			kv := m.KeyValues[key]
			confidence := "-"
			if kv.Confidence != nil {
				confidence = fmt.Sprintf("%.0f%%", *kv.Confidence*100)
			}
			rows = append(rows, []string{key, kv.Value, confidence})
		}
		fmt.Fprintln(out, renderTable([]string{"Field", "Value", "Confidence"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	}
}

func printDecision(out io.Writer, d intake.RoutingDecision) {
	fmt.Fprintf(out, "Success:   %s\n", yesNo(d.Success))
	fmt.Fprintf(out, "Triggered: %s\n", yesNo(d.Triggered))
	if d.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", d.Error)
		if d.Detail != "" {
			fmt.Fprintf(out, "Detail:    %s\n", d.Detail)
		}
		return
	}
	fmt.Fprintf(out, "Action:    %s\n", valueOr(d.Action, "-"))
	fmt.Fprintf(out, "Rule:      %s\n", valueOr(d.Rule, "-"))
	if d.Workflow != nil {
		fmt.Fprintf(out, "Workflow:  %s (%s) -> %s", d.Workflow.ID, d.Workflow.Name, d.Workflow.CandidateGroup)
		if d.Workflow.Approver != "" {
			fmt.Fprintf(out, ", approver %s", d.Workflow.Approver)
		}
		fmt.Fprintln(out)
	}
	if d.TargetFolder != "" {
		fmt.Fprintf(out, "Folder:    %s\n", d.TargetFolder)
	}
	if d.Priority != "" {
		fmt.Fprintf(out, "Priority:  %s\n", d.Priority)
	}
	if len(d.Notifications) > 0 {
		rows := make([][]string, 0, len(d.Notifications))
		for _, n := range d.Notifications {
			rows = append(rows, []string{n.Channel, n.Recipient, n.Message, yesNo(n.Sent)})
		}
		fmt.Fprintln(out, renderTable([]string{"Channel", "Recipient", "Message", "Sent"}, rows, nil))
	}
}

func renderStageTable(stages []intake.StageResult) string {
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Name.Step()),
			string(s.Name),
			string(s.Status),
			formatStageDuration(s.Duration()),
			s.Detail,
		})
	}
	return renderTable(
		[]string{"#", "Stage", "Status", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderMatchTable(matches []intake.DuplicateMatch) string {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			m.DocumentID,
			m.Name,
			fmt.Sprintf("%.1f%%", m.SimilarityPercent),
			m.MatchType,
			string(m.Severity),
			valueOr(m.Owner, "-"),
			formatDate(m.UploadDate),
		})
	}
	return renderTable(
		[]string{"Document", "Name", "Similarity", "Match", "Severity", "Owner", "Uploaded"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}

func renderConflictTable(conflicts []intake.Conflict) string {
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []string{c.Field, c.Value, string(c.Severity), c.Message})
	}
	return renderTable([]string{"Field", "Value", "Severity", "Message"}, rows, nil)
}

func formatStageDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
