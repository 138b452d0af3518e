package main

import (
	"strings"

	"github.com/spf13/cobra"

	"docintake/internal/intake"
)

type actorFlags struct {
	user        string
	roles       []string
	department  string
	permissions []string
}

func (f *actorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "Acting user ID")
	cmd.Flags().StringSliceVar(&f.roles, "role", nil, "Actor role (repeatable)")
	cmd.Flags().StringVar(&f.department, "department", "", "Actor department code")
	cmd.Flags().StringSliceVar(&f.permissions, "permission", nil, "Actor permission, e.g. documents:distribute (repeatable)")
}

func (f *actorFlags) actor() intake.ActorContext {
	return intake.ActorContext{
		UserID:      strings.TrimSpace(f.user),
		Roles:       trimAll(f.roles),
		Department:  strings.ToUpper(strings.TrimSpace(f.department)),
		Permissions: trimAll(f.permissions),
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
