package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docintake/internal/store"
)

func newDocumentsCommand(ctx *commandContext) *cobra.Command {
	docsCmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage the document repository used for duplicate detection",
	}
	docsCmd.AddCommand(newDocumentsListCommand(ctx))
	docsCmd.AddCommand(newDocumentsDeleteCommand(ctx))
	return docsCmd
}

func newDocumentsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				docs, err := st.ListDocuments(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, docs)
				}
				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintln(out, "No documents stored")
					return nil
				}
				rows := make([][]string, 0, len(docs))
				for _, d := range docs {
					rows = append(rows, []string{
						d.ID,
						d.Name,
						valueOr(d.Category, "-"),
						fmt.Sprintf("%d", d.Version),
						valueOr(d.Owner, "-"),
						valueOr(d.Path, "-"),
						formatDate(d.UploadedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Category", "Version", "Owner", "Path", "Uploaded"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output documents as JSON")
	return cmd
}

func newDocumentsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a document from the repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteDocument(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", id)
				return nil
			})
		},
	}
}
