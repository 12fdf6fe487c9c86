// Package discord adapts a discordgo session to the dispatch and lifecycle
// packages.
package discord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/dispatch"
)

// DefaultEventBuffer is the number of interactions queued before the
// gateway handler blocks.
const DefaultEventBuffer = 64

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithEventBuffer sets the event queue size.
func WithEventBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.buffer = n
		}
	}
}

// Gateway is a Discord session that delivers interactions as dispatch
// events. It satisfies lifecycle.Session.
type Gateway struct {
	dg     *discordgo.Session
	logger *log.Logger
	buffer int

	events    chan *dispatch.Event
	ready     chan struct{}
	readyOnce sync.Once

	// done unblocks handlers waiting on a full queue; mu keeps events
	// open until every such handler has returned.
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewGateway creates a session for the bot token. Nothing is sent to Discord
// until Open.
func NewGateway(token string, opts ...Option) (*Gateway, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	g := &Gateway{
		dg:     dg,
		logger: log.Default(),
		buffer: DefaultEventBuffer,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.events = make(chan *dispatch.Event, g.buffer)

	// Guild state is needed to resolve role names.
	dg.Identify.Intents = discordgo.IntentsGuilds
	dg.AddHandler(g.onReady)
	dg.AddHandler(g.onInteractionCreate)
	return g, nil
}

// Session exposes the underlying discordgo session.
func (g *Gateway) Session() *discordgo.Session { return g.dg }

// Open connects to the gateway.
func (g *Gateway) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

// Ready is closed on the first Ready event.
func (g *Gateway) Ready() <-chan struct{} { return g.ready }

// Events delivers interactions in arrival order. It is closed by Close.
func (g *Gateway) Events() <-chan *dispatch.Event { return g.events }

// Close disconnects and closes the event stream. It is safe to call twice.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		err = g.dg.Close()

		g.mu.Lock()
		g.closed = true
		close(g.events)
		g.mu.Unlock()
	})
	return err
}

// onReady is called when the bot is ready
func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := "unknown"
	if r != nil && r.User != nil {
		name = r.User.Username
	}
	g.readyOnce.Do(func() {
		g.logger.Printf("[INFO] ✅ Discord bot %v is running.", name)
		close(g.ready)
	})
}

// onInteractionCreate queues the interaction for the router. A full queue
// blocks the discordgo handler goroutine until the router catches up.
func (g *Gateway) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil {
		return
	}
	ev := toEvent(s, i)

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return
	}
	select {
	case g.events <- ev:
	case <-g.done:
	}
}
