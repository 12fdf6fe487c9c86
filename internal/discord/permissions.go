package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/dispatch"
)

// principalOf identifies whoever triggered the interaction. Guild members
// carry their role IDs and, when the session state knows them, the role
// names too, so a manifest may name a role either way.
func principalOf(s *discordgo.Session, i *discordgo.Interaction) dispatch.Principal {
	if i == nil {
		return dispatch.Principal{}
	}
	if i.Member != nil {
		p := dispatch.Principal{Roles: memberRoles(s, i.GuildID, i.Member.Roles)}
		if u := i.Member.User; u != nil {
			p.ID = u.ID
			p.Name = u.Username
		}
		if i.Member.Nick != "" {
			p.Name = i.Member.Nick
		}
		return p
	}
	if i.User != nil {
		return dispatch.Principal{ID: i.User.ID, Name: i.User.Username}
	}
	return dispatch.Principal{}
}

func memberRoles(s *discordgo.Session, guildID string, ids []string) []string {
	roles := make([]string, 0, len(ids)*2)
	roles = append(roles, ids...)
	if s == nil || s.State == nil || guildID == "" {
		return roles
	}
	for _, id := range ids {
		if role, err := s.State.Role(guildID, id); err == nil && role != nil && role.Name != "" {
			roles = append(roles, role.Name)
		}
	}
	return roles
}
