package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/access"
	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/pkg/cmd"
)

// WhoAmICommand shows the caller the identity and roles the bot sees, and
// optionally whether those roles satisfy a given role requirement.
type WhoAmICommand struct{}

func (c *WhoAmICommand) Name() string        { return "whoami" }
func (c *WhoAmICommand) Description() string { return "Show the roles the bot sees for you" }

func (c *WhoAmICommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ev, ok := inv.Data.(*dispatch.Event)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}

	roles := access.NewRoleSet(ev.Principal.Roles...)
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, r)
	}
	sort.Strings(names)

	listed := "none"
	if len(names) > 0 {
		listed = strings.Join(names, ", ")
	}

	user := ev.Principal.Name
	if user == "" {
		user = "unknown"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: fmt.Sprintf("%s (%s)", user, ev.Principal.ID)},
		{Name: "Roles", Value: listed},
	}

	if required, ok := optionValue(inv.Args, "role"); ok {
		verdict := "❌ no"
		if roles.Allows(required) {
			verdict = "✅ yes"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Allowed for %q", required),
			Value: verdict,
		})
	}

	return ev.Reply(ctx, dispatch.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:  "Who am I",
			Color:  dispatch.EmbedColor,
			Fields: fields,
		}},
		Ephemeral: true,
	})
}

// optionValue finds name in "name=value" arguments.
func optionValue(args []string, name string) (string, bool) {
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}

func init() {
	cmd.DefaultRegistry.Register(&WhoAmICommand{})
}
