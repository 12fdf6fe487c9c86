package middleware

import (
	"context"
	"log"
	"time"

	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/pkg/cmd"
)

// WithCommandLogger logs every handler invocation with its caller and
// duration. A nil logger means log.Default().
func WithCommandLogger(logger *log.Logger) cmd.Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			user, guild := "unknown", "dm"
			if ev, ok := inv.Data.(*dispatch.Event); ok {
				user = resolveUser(ev.Principal)
				if ev.GuildID != "" {
					guild = ev.GuildID
				}
			}
			status := "ok"
			if err != nil {
				status = "failed"
			}
			logger.Printf("[INFO] [%s] /%s by %s %s in %s", guild, c.Name(), user, status, time.Since(start).Round(time.Millisecond))
			return err
		})
	}
}

// resolveUser picks the most readable identifier for a principal.
func resolveUser(p dispatch.Principal) string {
	switch {
	case p.Name != "" && p.ID != "":
		return p.Name + " (" + p.ID + ")"
	case p.Name != "":
		return p.Name
	case p.ID != "":
		return p.ID
	default:
		return "unknown"
	}
}
