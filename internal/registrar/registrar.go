// Package registrar publishes the loaded command set to Discord's
// application command catalog.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/pkg/ratelimit"
	"github.com/keshon/server-relay/pkg/util"
)

// scopeWorkers caps concurrent catalog writes across scopes. The limiter
// still paces the writes themselves.
const scopeWorkers = 4

// ErrNoApplication is returned when the registrar has no application ID.
var ErrNoApplication = errors.New("application id is not set")

// CatalogWriter replaces the whole command catalog of appID in scope with
// defs. An empty scope addresses the global catalog.
type CatalogWriter func(ctx context.Context, appID, scope string, defs []*discordgo.ApplicationCommand) error

// Option configures a Registrar.
type Option func(*Registrar)

// WithLimiter sets the limiter every catalog write waits on.
func WithLimiter(l *ratelimit.AdaptiveLimiter) Option {
	return func(r *Registrar) { r.limiter = l }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registrar) { r.logger = l }
}

// Registrar issues full-replace catalog writes. Commands missing from the
// registry disappear remotely. It never retries a failed write.
type Registrar struct {
	appID   string
	write   CatalogWriter
	limiter *ratelimit.AdaptiveLimiter
	logger  *log.Logger

	mu        sync.Mutex
	published map[string]string // scope -> digest of the last successful write
}

// New returns a registrar writing through write.
func New(appID string, write CatalogWriter, opts ...Option) *Registrar {
	r := &Registrar{
		appID:     appID,
		write:     write,
		published: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = ratelimit.NewAdaptiveLimiter(rate.Limit(1), rate.Limit(0.1), rate.Limit(2), rate.Limit(0.1), 0.5)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Publish writes every enabled command in reg to scope in a single call.
func (r *Registrar) Publish(ctx context.Context, reg *command.Registry, scope string) error {
	if r.appID == "" {
		return ErrNoApplication
	}
	defs := reg.Definitions()
	digest := catalogDigest(defs)

	r.logger.Printf("[INFO] [%s] Started refreshing application (/) commands (%d).", scopeLabel(scope), len(defs))

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", scopeLabel(scope), err)
	}
	err := r.write(ctx, r.appID, scope, defs)
	r.limiter.Observe(err, isThrottled)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", scopeLabel(scope), err)
	}

	r.mu.Lock()
	r.published[scope] = digest
	r.mu.Unlock()

	r.logger.Printf("[DONE] [%s] Successfully reloaded application (/) commands.", scopeLabel(scope))
	return nil
}

// Sync publishes reg only when it differs from the last successful write to
// scope. It reports whether a write happened.
func (r *Registrar) Sync(ctx context.Context, reg *command.Registry, scope string) (bool, error) {
	digest := catalogDigest(reg.Definitions())

	r.mu.Lock()
	last, ok := r.published[scope]
	r.mu.Unlock()

	if ok && last == digest {
		r.logger.Printf("[INFO] [%s] Command catalog unchanged, skipping publish", scopeLabel(scope))
		return false, nil
	}
	if err := r.Publish(ctx, reg, scope); err != nil {
		return false, err
	}
	return true, nil
}

// PublishAll publishes reg to every scope. A failed scope does not stop the
// others; their errors are joined. No scopes means the global catalog.
func (r *Registrar) PublishAll(ctx context.Context, reg *command.Registry, scopes []string) error {
	return util.Parallel(ctx, normalizeScopes(scopes), scopeWorkers, func(ctx context.Context, scope string) error {
		return r.Publish(ctx, reg, scope)
	})
}

// SyncAll is Sync over every scope. It returns the number of scopes written.
func (r *Registrar) SyncAll(ctx context.Context, reg *command.Registry, scopes []string) (int, error) {
	var wrote atomic.Int32
	err := util.Parallel(ctx, normalizeScopes(scopes), scopeWorkers, func(ctx context.Context, scope string) error {
		ok, err := r.Sync(ctx, reg, scope)
		if ok {
			wrote.Add(1)
		}
		return err
	})
	return int(wrote.Load()), err
}

// normalizeScopes trims guild IDs and drops blanks and repeats. No guild
// left means the global catalog.
func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// Digest returns the digest of the last successful write to scope.
func (r *Registrar) Digest(scope string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.published[scope]
	return d, ok
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "global"
	}
	return scope
}

// isThrottled flags responses that should slow further writes down.
func isThrottled(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		code := rest.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	return ratelimit.DefaultClassifier(err)
}
