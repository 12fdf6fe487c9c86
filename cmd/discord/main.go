// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	_ "github.com/keshon/server-relay/internal/commands/core"

	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/internal/config"
	"github.com/keshon/server-relay/internal/discord"
	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/internal/lifecycle"
	"github.com/keshon/server-relay/internal/middleware"
	"github.com/keshon/server-relay/internal/registrar"
	v "github.com/keshon/server-relay/internal/version"
	"github.com/keshon/server-relay/pkg/cmd"
	"github.com/keshon/server-relay/pkg/jobmgr"
	"github.com/keshon/server-relay/pkg/ratelimit"
)

func main() {
	log.SetFlags(log.LstdFlags | log.LUTC)
	log.Printf("[INFO] Starting %v bot...", v.String())

	cfg, err := config.New()
	if err != nil {
		log.Fatal("[ERR] ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, err := discord.NewGateway(cfg.DiscordToken, discord.WithEventBuffer(cfg.EventBuffer))
	if err != nil {
		log.Fatal("[ERR] ", err)
	}

	jobs := jobmgr.NewManager(nil)
	router := dispatch.NewRouter(dispatch.WithJobs(jobs))

	limit := rate.Limit(cfg.PublishRate)
	reg := registrar.New(cfg.AppID, discord.BulkOverwriter(gateway.Session()),
		registrar.WithLimiter(ratelimit.NewAdaptiveLimiter(limit, limit/10, limit*2, limit/10, 0.5)))

	ctrl := lifecycle.New(lifecycle.Config{
		Session:      gateway,
		Load:         loadCommands(cfg),
		Registrar:    reg,
		Router:       router,
		Scopes:       cfg.GuildIDs,
		DrainTimeout: cfg.DrainTimeout,
	})
	ctrl.OnShutdown(func() {
		log.Printf("[INFO] %s", jobs.Status())
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for s := range sig {
			if s == syscall.SIGHUP {
				log.Println("[INFO] Received SIGHUP, reloading commands...")
				ctrl.Reload()
				continue
			}
			log.Printf("[INFO] Received signal %s, shutting down...\n", s)
			cancel()
			return
		}
	}()

	if err := ctrl.Run(ctx); err != nil {
		log.Fatal("[ERR] Discord bot error: ", err)
	}
}

// loadCommands reads the manifest directory on every call, so a reload
// picks up edited files.
func loadCommands(cfg *config.Config) lifecycle.LoadFunc {
	return func() (*command.Registry, error) {
		return command.LoadDir(cfg.CommandsDir, command.LoadOptions{
			Template:    cfg.CommandTemplate,
			StrictNames: cfg.StrictNames,
			Middlewares: []cmd.Middleware{middleware.WithCommandLogger(nil)},
		})
	}
}
