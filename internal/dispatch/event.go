// Package dispatch routes inbound interactions to command handlers.
package dispatch

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Kind classifies an inbound interaction.
type Kind int

const (
	KindOther Kind = iota
	KindCommand
	KindComponent
	KindAutocomplete
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindComponent:
		return "component"
	case KindAutocomplete:
		return "autocomplete"
	default:
		return "other"
	}
}

// Principal is whoever invoked the interaction.
type Principal struct {
	ID    string
	Name  string
	Roles []string
}

// Reply is what the router or a handler sends back to the principal.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// Replier answers one interaction.
type Replier interface {
	Reply(ctx context.Context, r Reply) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, r Reply) error

func (f ReplierFunc) Reply(ctx context.Context, r Reply) error { return f(ctx, r) }

// Event is one inbound interaction. Session and Interaction are set by the
// Discord adapter and may be nil elsewhere.
type Event struct {
	ID          string
	Kind        Kind
	CommandName string
	Args        []string
	GuildID     string
	ChannelID   string
	Principal   Principal
	Replier     Replier

	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
}

// Reply answers the event through its Replier.
func (e *Event) Reply(ctx context.Context, r Reply) error {
	if e.Replier == nil {
		return ErrNoReplier
	}
	return e.Replier.Reply(ctx, r)
}
