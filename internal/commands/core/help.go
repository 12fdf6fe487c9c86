package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/access"
	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/internal/version"
	"github.com/keshon/server-relay/pkg/cmd"
)

// HelpCommand lists the armed commands the caller is allowed to run.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Get a list of available commands" }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ev, ok := inv.Data.(*dispatch.Event)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}
	reg := dispatch.RegistryFrom(ctx)
	if reg == nil {
		return errors.New("help called outside a routed interaction")
	}

	roles := access.NewRoleSet(ev.Principal.Roles...)
	var visible []*command.Descriptor
	for _, d := range reg.All() {
		if roles.Allows(d.RoleRequired) {
			visible = append(visible, d)
		}
	}

	viewAs, _ := optionValue(inv.Args, "view_as")
	var output string
	switch viewAs {
	case "role":
		output = buildHelpByRole(visible)
	default:
		output = buildHelpFlat(visible)
	}

	return ev.Reply(ctx, dispatch.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       version.AppName + " Help",
			Description: output,
			Color:       dispatch.EmbedColor,
		}},
		Ephemeral: true,
	})
}

func helpLine(d *command.Descriptor) string {
	desc := ""
	if d.Definition != nil {
		desc = d.Definition.Description
	}
	if desc == "" {
		desc = "context menu"
	}
	return fmt.Sprintf("`/%s` - %s\n", d.Name, desc)
}

func buildHelpFlat(cmds []*command.Descriptor) string {
	if len(cmds) == 0 {
		return "No commands available."
	}
	sorted := append([]*command.Descriptor(nil), cmds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for _, d := range sorted {
		sb.WriteString(helpLine(d))
	}
	return sb.String()
}

func buildHelpByRole(cmds []*command.Descriptor) string {
	if len(cmds) == 0 {
		return "No commands available."
	}
	byRole := make(map[string][]*command.Descriptor)
	for _, d := range cmds {
		role := d.RoleRequired
		if role == "" {
			role = "everyone"
		}
		byRole[role] = append(byRole[role], d)
	}

	roles := make([]string, 0, len(byRole))
	for r := range byRole {
		roles = append(roles, r)
	}
	sort.Strings(roles)

	var sb strings.Builder
	for _, r := range roles {
		sb.WriteString(fmt.Sprintf("**%s**\n", r))
		sb.WriteString(buildHelpFlat(byRole[r]))
		sb.WriteString("\n")
	}
	return sb.String()
}

func init() {
	cmd.DefaultRegistry.Register(&HelpCommand{})
}
