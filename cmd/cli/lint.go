package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keshon/server-relay/pkg/cmd"
)

func newLintCommand() *cobra.Command {
	var flags manifestFlags
	c := &cobra.Command{
		Use:   "lint [dir]",
		Short: "Validate command manifests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			reg, err := flags.load(c, args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHANDLER\tROLE\tSOURCE")
			for _, d := range reg.All() {
				role := d.RoleRequired
				if role == "" {
					role = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, cmd.Root(d.Handler).Name(), role, d.Source)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "✅ %d command(s) valid\n", reg.Len())
			for _, d := range reg.All() {
				if d.RoleRequired != "" && !isSnowflake(d.RoleRequired) {
					fmt.Fprintf(c.OutOrStdout(), "⚠️ %s requires role %q by name; any role with that name passes, prefer the role ID\n", d.Name, d.RoleRequired)
				}
			}

			bound := make(map[string]bool, reg.Len())
			for _, d := range reg.All() {
				bound[cmd.Root(d.Handler).Name()] = true
			}
			for _, h := range cmd.DefaultRegistry.GetAll() {
				if !bound[h.Name()] {
					fmt.Fprintf(c.OutOrStdout(), "⚠️ handler %q has no enabled manifest\n", h.Name())
				}
			}
			return nil
		},
	}
	flags.register(c)
	return c
}

// isSnowflake reports whether s looks like a Discord ID.
func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
