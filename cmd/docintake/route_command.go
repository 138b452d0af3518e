package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"docintake/internal/intake"
	"docintake/internal/workflow"
)

func newRouteCommand(ctx *commandContext) *cobra.Command {
	var actor actorFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "route <metadata.toml>",
		Short: "Evaluate the routing table for document metadata",
		Long: "Reads document metadata (title, category, tags, confidentiality, urgency,\n" +
			"security, owner_department) from TOML and prints the routing decision for\n" +
			"the actor described by the flags. Notifications are not delivered.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			reference, err := ctx.reference()
			if err != nil {
				return err
			}
			metadata, err := readMetadata(args[0])
			if err != nil {
				return err
			}

			decision := workflow.BuildRouter(cfg, reference, logger).Evaluate(metadata, actor.actor())
			if jsonOutput {
				return writeJSON(cmd, decision)
			}
			printDecision(cmd.OutOrStdout(), decision)
			return nil
		},
	}

	actor.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the decision as JSON")
	return cmd
}

func readMetadata(path string) (intake.Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return intake.Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var metadata intake.Metadata
	if err := toml.Unmarshal(raw, &metadata); err != nil {
		return intake.Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return metadata, nil
}
