package main

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/keshon/server-relay/internal/config"
	"github.com/keshon/server-relay/internal/discord"
	"github.com/keshon/server-relay/internal/registrar"
)

func newPublishCommand() *cobra.Command {
	var (
		flags  manifestFlags
		guilds []string
		global bool
	)
	c := &cobra.Command{
		Use:   "publish [dir]",
		Short: "Replace the remote command catalog without starting the bot",
		Long: `publish loads the manifests and overwrites the application's commands
in one request. Credentials come from DISCORD_TOKEN and DISCORD_APP_ID
(environment or .env); the guilds default to DISCORD_GUILD_ID.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if !c.Flags().Changed("dir") && len(args) == 0 {
				flags.dir = cfg.CommandsDir
			}
			if !c.Flags().Changed("template") {
				flags.template = cfg.CommandTemplate
			}

			reg, err := flags.load(c, args)
			if err != nil {
				return err
			}

			targets := cfg.GuildIDs
			switch {
			case global:
				targets = nil
			case len(guilds) > 0:
				targets = guilds
			}

			s, err := discordgo.New("Bot " + cfg.DiscordToken)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			pub := registrar.New(cfg.AppID, discord.BulkOverwriter(s),
				registrar.WithLogger(log.New(c.ErrOrStderr(), "", log.LstdFlags|log.LUTC)))
			return pub.PublishAll(c.Context(), reg, targets)
		},
	}
	flags.register(c)
	c.Flags().StringSliceVar(&guilds, "guild", nil, "guilds to publish to (overrides DISCORD_GUILD_ID)")
	c.Flags().BoolVar(&global, "global", false, "publish global commands")
	return c
}
