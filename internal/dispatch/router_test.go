package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/keshon/server-relay/internal/command"
	"github.com/keshon/server-relay/pkg/cmd"
)

// recorder captures replies sent to one interaction.
type recorder struct {
	mu      sync.Mutex
	replies []Reply
	err     error
}

func (r *recorder) Reply(_ context.Context, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return r.err
}

func (r *recorder) all() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}

type countingHandler struct {
	name  string
	calls atomic.Int32
	run   func(ctx context.Context, inv *cmd.Invocation) error
}

func (h *countingHandler) Name() string        { return h.name }
func (h *countingHandler) Description() string { return h.name }
func (h *countingHandler) Run(ctx context.Context, inv *cmd.Invocation) error {
	h.calls.Add(1)
	if h.run != nil {
		return h.run(ctx, inv)
	}
	return nil
}

func registryOf(descs ...*command.Descriptor) *command.Registry {
	reg := command.NewRegistry()
	for _, d := range descs {
		reg.Put(d)
	}
	return reg
}

func descriptor(h *countingHandler, role string) *command.Descriptor {
	return &command.Descriptor{
		Name:         h.name,
		Definition:   &discordgo.ApplicationCommand{Name: h.name, Description: h.name},
		Enabled:      true,
		RoleRequired: role,
		Handler:      h,
	}
}

func newTestRouter(t *testing.T) (*Router, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewRouter(WithLogger(log.New(&buf, "", 0))), &buf
}

func commandEvent(name string, roles ...string) (*Event, *recorder) {
	rec := &recorder{}
	return &Event{
		Kind:        KindCommand,
		CommandName: name,
		Principal:   Principal{ID: "u1", Roles: roles},
		Replier:     rec,
	}, rec
}

func TestRoute_PingWithoutRoleRunsHandler(t *testing.T) {
	ping := &countingHandler{name: "ping"}
	r, logs := newTestRouter(t)
	r.Arm(registryOf(descriptor(ping, "")))

	ev, rec := commandEvent("ping")
	var seen *Event
	ping.run = func(_ context.Context, inv *cmd.Invocation) error {
		seen, _ = inv.Data.(*Event)
		return nil
	}
	r.Route(context.Background(), ev)

	assert.EqualValues(t, 1, ping.calls.Load())
	assert.Same(t, ev, seen)
	assert.Empty(t, rec.all())
	assert.Empty(t, logs.String())
}

func TestRoute_MissingRoleDenies(t *testing.T) {
	ban := &countingHandler{name: "ban"}
	r, logs := newTestRouter(t)
	r.Arm(registryOf(descriptor(ban, "admin")))

	ev, rec := commandEvent("ban", "member")
	r.Route(context.Background(), ev)

	assert.EqualValues(t, 0, ban.calls.Load())
	replies := rec.all()
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Ephemeral)
	require.Len(t, replies[0].Embeds, 1)
	assert.Equal(t, DeniedMessage, replies[0].Embeds[0].Description)
	assert.Empty(t, logs.String(), "denial is not an error")
	assert.Equal(t, []string{"member"}, ev.Principal.Roles)
}

func TestRoute_HeldRoleAllows(t *testing.T) {
	ban := &countingHandler{name: "ban"}
	r, _ := newTestRouter(t)
	r.Arm(registryOf(descriptor(ban, "admin")))

	ev, rec := commandEvent("ban", "member", "admin")
	r.Route(context.Background(), ev)

	assert.EqualValues(t, 1, ban.calls.Load())
	assert.Empty(t, rec.all())
}

func TestRoute_HandlerFailureIsContained(t *testing.T) {
	tests := []struct {
		name string
		run  func(context.Context, *cmd.Invocation) error
		want error
	}{
		{
			name: "ReturnsError",
			run:  func(context.Context, *cmd.Invocation) error { return errors.New("kick failed") },
		},
		{
			name: "Panics",
			run:  func(context.Context, *cmd.Invocation) error { panic("boom") },
			want: ErrHandlerPanic,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kick := &countingHandler{name: "kick", run: tt.run}
			ping := &countingHandler{name: "ping"}
			r, logs := newTestRouter(t)
			r.Arm(registryOf(descriptor(kick, ""), descriptor(ping, "")))

			ev, rec := commandEvent("kick")
			require.NotPanics(t, func() { r.Route(context.Background(), ev) })

			replies := rec.all()
			require.Len(t, replies, 1)
			assert.Equal(t, FailureReply(), replies[0])
			assert.Contains(t, logs.String(), "[ERR] Error running command /kick")
			if tt.want == ErrHandlerPanic {
				assert.Contains(t, logs.String(), "boom")
			}

			next, nextRec := commandEvent("ping")
			r.Route(context.Background(), next)
			assert.EqualValues(t, 1, ping.calls.Load())
			assert.Empty(t, nextRec.all())
		})
	}
}

func TestRoute_FailureReplyErrorIsLogged(t *testing.T) {
	kick := &countingHandler{name: "kick", run: func(context.Context, *cmd.Invocation) error { return errors.New("x") }}
	r, logs := newTestRouter(t)
	r.Arm(registryOf(descriptor(kick, "")))

	ev, rec := commandEvent("kick")
	rec.err = errors.New("interaction already acknowledged")
	r.Route(context.Background(), ev)

	assert.Contains(t, logs.String(), "[WARN] Failed to send failure notice for /kick")
}

func TestRoute_SilentNoOps(t *testing.T) {
	ping := &countingHandler{name: "ping"}

	t.Run("NotArmed", func(t *testing.T) {
		r, logs := newTestRouter(t)
		ev, rec := commandEvent("ping")
		r.Route(context.Background(), ev)
		assert.False(t, r.Armed())
		assert.Empty(t, rec.all())
		assert.Empty(t, logs.String())
	})

	r, logs := newTestRouter(t)
	r.Arm(registryOf(descriptor(ping, "")))

	t.Run("UnknownCommand", func(t *testing.T) {
		ev, rec := commandEvent("stale")
		r.Route(context.Background(), ev)
		assert.Empty(t, rec.all())
	})

	for _, kind := range []Kind{KindOther, KindComponent, KindAutocomplete} {
		t.Run("Kind_"+kind.String(), func(t *testing.T) {
			ev, rec := commandEvent("ping")
			ev.Kind = kind
			r.Route(context.Background(), ev)
			assert.Empty(t, rec.all())
		})
	}

	t.Run("NilEvent", func(t *testing.T) {
		assert.NotPanics(t, func() { r.Route(context.Background(), nil) })
	})

	assert.EqualValues(t, 0, ping.calls.Load())
	assert.Empty(t, logs.String())
}

func TestRoute_UnknownNameNeverReplies_Property(t *testing.T) {
	ping := &countingHandler{name: "ping"}
	r, _ := newTestRouter(t)
	r.Arm(registryOf(descriptor(ping, "admin")))

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-z]{1,10}`).Filter(func(s string) bool { return s != "ping" }).Draw(t, "name")
		roles := rapid.SliceOf(rapid.SampledFrom([]string{"admin", "member", "mod"})).Draw(t, "roles")

		ev, rec := commandEvent(name, roles...)
		r.Route(context.Background(), ev)
		if len(rec.all()) != 0 {
			t.Fatalf("unknown command %q produced a reply", name)
		}
	})
	assert.EqualValues(t, 0, ping.calls.Load())
}

func TestRoute_RoleGate_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		required := rapid.SampledFrom([]string{"", "admin", "mod"}).Draw(t, "required")
		roles := rapid.SliceOf(rapid.SampledFrom([]string{"admin", "member", "mod"})).Draw(t, "roles")

		h := &countingHandler{name: "cmd"}
		r := NewRouter(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
		r.Arm(registryOf(descriptor(h, required)))

		ev, rec := commandEvent("cmd", roles...)
		r.Route(context.Background(), ev)

		held := required == ""
		for _, role := range roles {
			held = held || role == required
		}
		if held && (h.calls.Load() != 1 || len(rec.all()) != 0) {
			t.Fatalf("authorized principal %v did not reach handler", roles)
		}
		if !held {
			replies := rec.all()
			if h.calls.Load() != 0 || len(replies) != 1 || replies[0].Embeds[0].Description != DeniedMessage {
				t.Fatalf("unauthorized principal %v: calls=%d replies=%v", roles, h.calls.Load(), replies)
			}
		}
	})
}

func TestArm_SwapsRegistry(t *testing.T) {
	ping := &countingHandler{name: "ping"}
	pong := &countingHandler{name: "pong"}
	r, _ := newTestRouter(t)

	r.Arm(registryOf(descriptor(ping, "")))
	r.Arm(registryOf(descriptor(pong, "")))

	ev, _ := commandEvent("ping")
	r.Route(context.Background(), ev)
	ev, _ = commandEvent("pong")
	r.Route(context.Background(), ev)

	assert.EqualValues(t, 0, ping.calls.Load())
	assert.EqualValues(t, 1, pong.calls.Load())
	assert.Equal(t, []string{"pong"}, r.Registry().Names())

	r.Arm(nil)
	assert.True(t, r.Armed())
	assert.Equal(t, 0, r.Registry().Len())
}

func TestServe_HandlersOverlapAndDrain(t *testing.T) {
	release := make(chan struct{})
	var running atomic.Int32
	slow := &countingHandler{name: "slow", run: func(ctx context.Context, _ *cmd.Invocation) error {
		running.Add(1)
		<-release
		return nil
	}}
	r, _ := newTestRouter(t)
	r.Arm(registryOf(descriptor(slow, "")))

	events := make(chan *Event)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- r.Serve(ctx, events) }()

	for i := 0; i < 3; i++ {
		ev, _ := commandEvent("slow")
		events <- ev
	}
	assert.Eventually(t, func() bool { return running.Load() == 3 }, time.Second, time.Millisecond,
		"handlers must not be serialized")
	assert.Len(t, r.InFlight(), 3)

	cancel()
	require.NoError(t, <-served)

	close(release)
	require.NoError(t, r.Drain(context.Background()))
	assert.EqualValues(t, 3, slow.calls.Load())
	assert.Empty(t, r.InFlight())
}

func TestServe_StopsWhenChannelCloses(t *testing.T) {
	ping := &countingHandler{name: "ping"}
	r, _ := newTestRouter(t)
	r.Arm(registryOf(descriptor(ping, "")))

	events := make(chan *Event, 2)
	ev1, _ := commandEvent("ping")
	ev2, _ := commandEvent("ping")
	events <- ev1
	events <- ev2
	close(events)

	require.NoError(t, r.Serve(context.Background(), events))
	require.NoError(t, r.Drain(context.Background()))
	assert.EqualValues(t, 2, ping.calls.Load())
}

func TestDrain_TimeoutCancelsHandlers(t *testing.T) {
	stuck := &countingHandler{name: "stuck", run: func(ctx context.Context, _ *cmd.Invocation) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r, logs := newTestRouter(t)
	r.Arm(registryOf(descriptor(stuck, "")))

	events := make(chan *Event, 1)
	ev, rec := commandEvent("stuck")
	events <- ev
	close(events)
	require.NoError(t, r.Serve(context.Background(), events))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Drain(ctx), context.DeadlineExceeded)

	assert.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Contains(t, logs.String(), "context canceled")
}

func TestEvent_ReplyWithoutReplier(t *testing.T) {
	ev := &Event{}
	assert.ErrorIs(t, ev.Reply(context.Background(), Reply{}), ErrNoReplier)
}

func TestRoute_HandlerSeesRoutingRegistry(t *testing.T) {
	var seen *command.Registry
	h := &countingHandler{name: "help", run: func(ctx context.Context, _ *cmd.Invocation) error {
		seen = RegistryFrom(ctx)
		return nil
	}}
	r, _ := newTestRouter(t)
	reg := registryOf(descriptor(h, ""))
	r.Arm(reg)

	ev, _ := commandEvent("help")
	r.Route(context.Background(), ev)
	assert.Same(t, reg, seen)
	assert.Nil(t, RegistryFrom(context.Background()))
}
