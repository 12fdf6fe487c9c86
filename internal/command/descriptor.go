package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/pkg/cmd"
)

// Descriptor is the loaded definition of one invocable command. It is not
// modified after the loader returns it.
type Descriptor struct {
	Name         string
	Definition   *discordgo.ApplicationCommand
	Enabled      bool
	RoleRequired string
	Handler      cmd.Command
	Source       string // manifest path the descriptor was read from
}

// Schema returns the definition in the shape the catalog expects: the name
// pinned to the registry key and chat-input type filled in when unset.
func (d *Descriptor) Schema() *discordgo.ApplicationCommand {
	def := discordgo.ApplicationCommand{}
	if d.Definition != nil {
		def = *d.Definition
	}
	def.Name = d.Name
	if def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return &def
}
