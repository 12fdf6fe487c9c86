package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/registrar"
)

// BulkOverwriter returns a catalog writer that replaces the application's
// commands in scope with one request. An empty scope targets the global
// catalog.
func BulkOverwriter(s *discordgo.Session) registrar.CatalogWriter {
	return func(ctx context.Context, appID, scope string, defs []*discordgo.ApplicationCommand) error {
		_, err := s.ApplicationCommandBulkOverwrite(appID, scope, defs, discordgo.WithContext(ctx))
		return err
	}
}
