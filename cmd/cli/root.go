package main

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/keshon/server-relay/internal/command"
	v "github.com/keshon/server-relay/internal/version"
)

// manifestFlags are shared by every subcommand that reads the commands
// directory.
type manifestFlags struct {
	dir      string
	template string
	strict   bool
	verbose  bool
}

func (f *manifestFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.dir, "dir", "commands", "commands directory")
	c.Flags().StringVar(&f.template, "template", command.DefaultTemplate, "template file name to skip")
	c.Flags().BoolVar(&f.strict, "strict", false, "fail on duplicate command names")
	c.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log every loaded file")
}

func (f *manifestFlags) load(c *cobra.Command, args []string) (*command.Registry, error) {
	dir := f.dir
	if len(args) > 0 {
		dir = args[0]
	}
	out := io.Discard
	if f.verbose {
		out = c.ErrOrStderr()
	}
	return command.LoadDir(dir, command.LoadOptions{
		Template:    f.template,
		StrictNames: f.strict,
		Logger:      log.New(out, "", 0),
	})
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Inspect and publish the bot's command manifests",
		Long: `relayctl works on the same command manifests the bot loads at startup.

Use it to validate manifests before deploying, to print the catalog that
would be sent to Discord, or to publish that catalog without starting the bot.`,
		Version:       v.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(newLintCommand(), newCatalogCommand(), newPublishCommand())
	return root
}
