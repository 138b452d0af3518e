package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRefdataCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Show the category and department reference lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ctx.reference()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, data)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			categories := make([][]string, 0, len(data.Categories))
			for _, c := range data.Categories {
				categories = append(categories, []string{c.Code, c.Label, valueOr(c.Folder, "-"), strings.Join(c.Keywords, ", ")})
			}
			for _, line := range renderSectionHeader("Categories", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable([]string{"Code", "Label", "Folder", "Keywords"}, categories, nil))

			departments := make([][]string, 0, len(data.Departments))
			for _, d := range data.Departments {
				departments = append(departments, []string{d.Code, d.Name})
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Departments", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable([]string{"Code", "Name"}, departments, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output reference lists as JSON")
	return cmd
}
