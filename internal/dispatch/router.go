package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-relay/internal/access"
	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/pkg/cmd"
	"github.com/keshon/server-relay/pkg/jobmgr"
)

const (
	EmbedColor     = 0xb01e66
	FailureMessage = "There was an error while executing this command!"
	DeniedMessage  = "You do not have permission to use this command."
)

var (
	ErrNoReplier    = errors.New("interaction has no reply channel")
	ErrHandlerPanic = errors.New("command handler panicked")
)

// DeniedReply is sent when the principal lacks the command's role.
func DeniedReply() Reply {
	return Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Access denied",
			Description: DeniedMessage,
			Color:       EmbedColor,
		}},
		Ephemeral: true,
	}
}

// FailureReply is sent when a handler returns an error or panics.
func FailureReply() Reply {
	return Reply{Content: FailureMessage, Ephemeral: true}
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger for handler failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithJobs sets the tracker for in-flight handler invocations.
func WithJobs(m *jobmgr.Manager) Option {
	return func(r *Router) { r.jobs = m }
}

// Router resolves interactions against the armed registry, checks access
// and runs handlers. It holds no per-call state; handlers run concurrently.
type Router struct {
	registry atomic.Pointer[command.Registry]
	logger   *log.Logger
	jobs     *jobmgr.Manager
}

// NewRouter returns an unarmed router. Until Arm is called every event is
// dropped.
func NewRouter(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.jobs == nil {
		r.jobs = jobmgr.NewManager(nil)
	}
	return r
}

// Arm installs reg as the routing table. Calling it again swaps the table
// atomically; events already dispatched keep the registry they started with.
func (r *Router) Arm(reg *command.Registry) {
	if reg == nil {
		reg = command.NewRegistry()
	}
	r.registry.Store(reg)
}

// Armed reports whether Arm has been called.
func (r *Router) Armed() bool { return r.registry.Load() != nil }

// Registry returns the current routing table, or nil before Arm.
func (r *Router) Registry() *command.Registry { return r.registry.Load() }

// Route handles one event to completion.
func (r *Router) Route(ctx context.Context, ev *Event) {
	if ev == nil || ev.Kind != KindCommand {
		return
	}
	reg := r.registry.Load()
	d, ok := reg.Get(ev.CommandName)
	if !ok {
		return
	}

	if !access.Authorize(ev.Principal.Roles, d.RoleRequired) {
		if err := ev.Reply(ctx, DeniedReply()); err != nil {
			r.logger.Printf("[WARN] Failed to send denial for /%s: %v", d.Name, err)
		}
		return
	}

	if err := invoke(context.WithValue(ctx, registryKey{}, reg), d, ev); err != nil {
		r.logger.Printf("[ERR] Error running command /%s for %s: %v", d.Name, ev.Principal.ID, err)
		if err := ev.Reply(ctx, FailureReply()); err != nil {
			r.logger.Printf("[WARN] Failed to send failure notice for /%s: %v", d.Name, err)
		}
	}
}

func invoke(ctx context.Context, d *command.Descriptor, ev *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return d.Handler.Run(ctx, &cmd.Invocation{Args: ev.Args, Data: ev})
}

type registryKey struct{}

// RegistryFrom returns the registry that routed the current handler call,
// or nil outside a routed call.
func RegistryFrom(ctx context.Context) *command.Registry {
	reg, _ := ctx.Value(registryKey{}).(*command.Registry)
	return reg
}

// Serve pulls events one at a time and routes each in its own tracked
// goroutine. It returns when ctx is done or events is closed; handlers that
// are still running are left to Drain.
func (r *Router) Serve(ctx context.Context, events <-chan *Event) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := r.jobs.Go(ctx, "interaction", func(jctx context.Context) error {
				r.Route(jctx, ev)
				return nil
			}); err != nil {
				return fmt.Errorf("failed to dispatch interaction: %w", err)
			}
		}
	}
}

// Drain stops accepting work and waits for in-flight handlers. When ctx
// ends first the remaining handlers are cancelled and ctx's error returned.
func (r *Router) Drain(ctx context.Context) error {
	r.jobs.Close()
	return r.jobs.Wait(ctx)
}

// InFlight lists the handler invocations still running.
func (r *Router) InFlight() []string { return r.jobs.List() }
