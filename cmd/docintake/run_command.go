package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docintake/internal/config"
	"docintake/internal/fileutil"
	"docintake/internal/intake"
	"docintake/internal/notifications"
	"docintake/internal/staging"
	"docintake/internal/store"
	"docintake/internal/workflow"
)

const staleWorkAge = 24 * time.Hour

func newRunCommand(ctx *commandContext) *cobra.Command {
	var actor actorFlags
	var decision string
	var documentID string
	var outputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a document through the intake pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			doc, err := loadDocument(args[0], documentID, actor.actor())
			if err != nil {
				return err
			}
			choice := intake.DuplicateDecision(strings.ToLower(strings.TrimSpace(decision)))
			if !choice.Valid() {
				return fmt.Errorf("invalid --duplicate-decision %q (want cancel, new_version, or proceed)", decision)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(func(st *store.Store) error {
				result, runErr := runPipeline(runCtx, cmd, ctx, cfg, st, doc, workflow.Options{
					Actor:             actor.actor(),
					DuplicateDecision: choice,
				}, !jsonOutput)
				if result.Run.ID == "" {
					// Rejected before a run was created.
					return runErr
				}

				wroteCopy := false
				if outputPath != "" && result.Watermark != nil && len(result.Watermark.Content) > 0 {
					if err := fileutil.WriteFileVerified(outputPath, result.Watermark.Content, 0o644); err != nil {
						return fmt.Errorf("write watermarked copy: %w", err)
					}
					wroteCopy = true
				}

				if jsonOutput {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					printRunResult(cmd, result, shouldColorize(cmd.OutOrStdout()))
					if wroteCopy {
						fmt.Fprintf(cmd.OutOrStdout(), "Watermarked copy written to %s\n", outputPath)
					}
				}
				return runErr
			})
		},
	}

	actor.register(cmd)
	cmd.Flags().StringVar(&decision, "duplicate-decision", "", "Answer to a blocking duplicate: cancel, new_version, or proceed")
	cmd.Flags().StringVar(&documentID, "id", "", "Document ID (defaults to one derived from the content hash)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the watermarked copy to this path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run result as JSON")
	return cmd
}

func runPipeline(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, cfg *config.Config, st *store.Store, doc intake.Document, opts workflow.Options, live bool) (workflow.Result, error) {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return workflow.Result{}, err
	}
	reference, err := ctx.reference()
	if err != nil {
		return workflow.Result{}, err
	}
	// Leftovers from interrupted runs.
	staging.CleanStale(runCtx, staging.WorkDir(cfg), staleWorkAge, logger)

	stages, err := workflow.BuildStages(cfg, reference, st, logger)
	if err != nil {
		return workflow.Result{}, err
	}
	orchestrator := workflow.New(cfg, stages, workflow.BuildRouter(cfg, reference, logger), logger,
		workflow.WithRecorder(st),
		workflow.WithRegistrar(st),
		workflow.WithDispatcher(notifications.NewDispatcher(cfg, logger)),
	)
	if live {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		orchestrator.OnStageChange(func(ev workflow.StageEvent) {
			if ev.Status == intake.StatusPending || (ev.Status == intake.StatusProcessing && !colorize) {
				return
			}
			fmt.Fprintln(out, renderStatusLine(string(ev.Stage), stageStatusKind(ev.Status), stageEventMessage(ev), colorize))
		})
	}
	return orchestrator.Run(runCtx, doc, opts)
}

func stageEventMessage(ev workflow.StageEvent) string {
	if ev.Detail != "" {
		return fmt.Sprintf("%s (%s)", ev.Status, ev.Detail)
	}
	return string(ev.Status)
}

// loadDocument reads path into an intake document owned by actor.
func loadDocument(path, id string, actor intake.ActorContext) (intake.Document, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return intake.Document{}, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return intake.Document{}, fmt.Errorf("inspect document %q: %w", expanded, err)
	}
	if info.IsDir() {
		return intake.Document{}, fmt.Errorf("%s is a directory", expanded)
	}
	content, err := os.ReadFile(expanded)
	if err != nil {
		return intake.Document{}, fmt.Errorf("read document: %w", err)
	}
	if len(content) == 0 {
		return intake.Document{}, errors.New("document is empty")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = "doc-" + fileutil.HashBytes(content)[:12]
	}
	return intake.Document{
		ID:              id,
		Name:            filepath.Base(expanded),
		MimeType:        fileutil.DetectMimeType(expanded, content),
		SizeBytes:       int64(len(content)),
		ContentRef:      expanded,
		Content:         content,
		Owner:           actor.UserID,
		OwnerDepartment: actor.Department,
		SelectedAt:      time.Now().UTC(),
	}, nil
}
