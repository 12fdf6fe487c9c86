package registrar

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// catalogDigest returns a deterministic SHA-1 over an ordered command list.
// Fields Discord assigns (IDs, application, guild, version) are left out.
// Command and option order are part of the digest; Discord shows options in
// declaration order.
func catalogDigest(defs []*discordgo.ApplicationCommand) string {
	stable := make([]discordgo.ApplicationCommand, 0, len(defs))
	for _, d := range defs {
		if d == nil {
			continue
		}
		c := *d
		c.ID, c.ApplicationID, c.GuildID, c.Version = "", "", "", ""
		stable = append(stable, c)
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha1.Sum(data))
}
