package discord

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/dispatch"
)

// toEvent converts a gateway interaction into a dispatch event. s may be nil,
// in which case role names are not resolved and the event cannot reply.
func toEvent(s *discordgo.Session, i *discordgo.InteractionCreate) *dispatch.Event {
	ev := &dispatch.Event{
		ID:          i.ID,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Principal:   principalOf(s, i.Interaction),
		Session:     s,
		Interaction: i,
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
		ev.Kind = dispatch.KindCommand
		if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
			ev.Kind = dispatch.KindAutocomplete
		}
		if data, ok := i.Data.(discordgo.ApplicationCommandInteractionData); ok {
			ev.CommandName = data.Name
			ev.Args = flattenOptions(data.Options)
		}
	case discordgo.InteractionMessageComponent:
		ev.Kind = dispatch.KindComponent
		if data, ok := i.Data.(discordgo.MessageComponentInteractionData); ok {
			ev.CommandName = data.CustomID
		}
	default:
		ev.Kind = dispatch.KindOther
	}

	if s != nil {
		ev.Replier = &replier{s: s, i: i.Interaction}
	}
	return ev
}

// flattenOptions renders options as "name=value". Subcommands and groups
// contribute their name followed by their own options.
func flattenOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	var args []string
	for _, o := range opts {
		if o == nil {
			continue
		}
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			args = append(args, o.Name)
			args = append(args, flattenOptions(o.Options)...)
		default:
			args = append(args, fmt.Sprintf("%s=%v", o.Name, o.Value))
		}
	}
	return args
}

// replier answers one interaction. The first reply is the interaction
// response; later replies are followups.
type replier struct {
	s         *discordgo.Session
	i         *discordgo.Interaction
	responded atomic.Bool
}

func (r *replier) Reply(ctx context.Context, reply dispatch.Reply) error {
	if r.responded.CompareAndSwap(false, true) {
		return r.s.InteractionRespond(r.i, responseFor(reply), discordgo.WithContext(ctx))
	}
	_, err := r.s.FollowupMessageCreate(r.i, true, followupFor(reply), discordgo.WithContext(ctx))
	return err
}

// responseFor builds the interaction response payload for a reply.
func responseFor(reply dispatch.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: reply.Content,
		Embeds:  reply.Embeds,
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func followupFor(reply dispatch.Reply) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content: reply.Content,
		Embeds:  reply.Embeds,
	}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return params
}
