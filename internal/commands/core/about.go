package core

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/internal/version"
	"github.com/keshon/server-relay/pkg/cmd"
)

// AboutCommand shows build information.
type AboutCommand struct{}

func (c *AboutCommand) Name() string        { return "about" }
func (c *AboutCommand) Description() string { return "Discover the origin of this bot" }

func (c *AboutCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ev, ok := inv.Data.(*dispatch.Event)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}

	armed := 0
	if reg := dispatch.RegistryFrom(ctx); reg != nil {
		armed = reg.Len()
	}

	return ev.Reply(ctx, dispatch.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "ℹ️ About " + version.AppName,
			Description: version.AppDescription,
			Color:       dispatch.EmbedColor,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Release", Value: fmt.Sprintf("%s (Go %s)", version.Version, version.GoVersion()), Inline: true},
				{Name: "Commands", Value: fmt.Sprintf("%d armed", armed), Inline: true},
			},
		}},
		Ephemeral: true,
	})
}

func init() {
	cmd.DefaultRegistry.Register(&AboutCommand{})
}
