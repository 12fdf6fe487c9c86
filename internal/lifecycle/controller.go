// Package lifecycle drives the bot from connection to shutdown: connect,
// then load, publish and arm routing once the session is ready.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/internal/registrar"
)

// Session is the connection to the chat platform.
type Session interface {
	// Open starts the connection. An error here (bad token, network) is fatal.
	Open(ctx context.Context) error
	// Ready is closed once the platform confirms the session.
	Ready() <-chan struct{}
	// Events delivers inbound interactions. It is closed when the session ends.
	Events() <-chan *dispatch.Event
	Close() error
}

// LoadFunc builds a fresh registry.
type LoadFunc func() (*command.Registry, error)

// Config wires a Controller.
type Config struct {
	Session   Session
	Load      LoadFunc
	Registrar *registrar.Registrar
	Router    *dispatch.Router
	// Scopes are the guilds to publish to; none means the global catalog.
	Scopes []string
	// DrainTimeout bounds how long shutdown waits for running handlers.
	// Zero exits without waiting.
	DrainTimeout time.Duration
	Logger       *log.Logger
}

// Controller owns process startup and shutdown.
type Controller struct {
	cfg    Config
	logger *log.Logger
	state  atomic.Int32

	mu        sync.Mutex
	listeners []func()
	reload    chan struct{}
}

// New returns a controller in the Disconnected state.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		cfg:    cfg,
		logger: logger,
		reload: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) setState(s State) { c.state.Store(int32(s)) }

// OnShutdown registers fn to be called when shutdown begins. Listeners run
// in registration order on the controller goroutine.
func (c *Controller) OnShutdown(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Reload asks a routing controller to rebuild and republish its registry.
// Requests made while one is pending are coalesced.
func (c *Controller) Reload() {
	select {
	case c.reload <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled or the session ends. It returns an
// error only for fatal startup failures.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(Connecting)
	if err := c.cfg.Session.Open(ctx); err != nil {
		c.setState(Terminated)
		return fmt.Errorf("failed to open session: %w", err)
	}

	select {
	case <-ctx.Done():
		c.shutdown()
		return nil
	case <-c.cfg.Session.Ready():
	}
	c.setState(Ready)

	reg, err := c.cfg.Load()
	if err != nil {
		c.closeSession()
		c.setState(Terminated)
		return fmt.Errorf("failed to load commands: %w", err)
	}
	if err := c.cfg.Registrar.PublishAll(ctx, reg, c.cfg.Scopes); err != nil {
		c.logger.Printf("[ERR] Failed to publish commands: %v", err)
	}
	c.cfg.Router.Arm(reg)
	c.setState(Routing)
	c.logger.Printf("[INFO] ✅ Bot loaded! %d command(s) armed", reg.Len())

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	served := make(chan error, 1)
	go func() { served <- c.cfg.Router.Serve(serveCtx, c.cfg.Session.Events()) }()

	for {
		select {
		case <-ctx.Done():
			stopServe()
			<-served
			c.shutdown()
			return nil
		case err := <-served:
			if err != nil {
				c.logger.Printf("[ERR] Interaction loop stopped: %v", err)
			} else {
				c.logger.Println("[WARN] Session closed its event stream")
			}
			c.shutdown()
			return nil
		case <-c.reload:
			c.reloadCommands(ctx)
		}
	}
}

func (c *Controller) reloadCommands(ctx context.Context) {
	reg, err := c.cfg.Load()
	if err != nil {
		c.logger.Printf("[ERR] Reload failed, keeping current commands: %v", err)
		return
	}
	if _, err := c.cfg.Registrar.SyncAll(ctx, reg, c.cfg.Scopes); err != nil {
		c.logger.Printf("[ERR] Failed to publish commands: %v", err)
	}
	c.cfg.Router.Arm(reg)
	c.logger.Printf("[INFO] Reloaded %d command(s)", reg.Len())
}

func (c *Controller) shutdown() {
	c.setState(ShuttingDown)
	c.logger.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")

	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}

	if c.cfg.Router != nil && c.cfg.DrainTimeout > 0 {
		dctx, cancel := context.WithTimeout(context.Background(), c.cfg.DrainTimeout)
		err := c.cfg.Router.Drain(dctx)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Printf("[WARN] Drain timed out after %s, cancelled running handlers", c.cfg.DrainTimeout)
		}
	}

	c.closeSession()
	c.setState(Terminated)
	c.logger.Println("[INFO] Discord bot exited cleanly")
}

func (c *Controller) closeSession() {
	if err := c.cfg.Session.Close(); err != nil {
		c.logger.Printf("[WARN] Failed to close session: %v", err)
	}
}
