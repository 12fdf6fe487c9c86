package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newCatalogCommand() *cobra.Command {
	var flags manifestFlags
	c := &cobra.Command{
		Use:   "catalog [dir]",
		Short: "Print the catalog that would be published, as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			reg, err := flags.load(c, args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reg.Definitions())
		},
	}
	flags.register(c)
	return c
}
