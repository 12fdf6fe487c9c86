package core

import (
	"context"
	"fmt"

	"github.com/keshon/server-relay/internal/dispatch"
	"github.com/keshon/server-relay/pkg/cmd"
)

// PingCommand replies with the gateway heartbeat latency.
type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check bot latency" }

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ev, ok := inv.Data.(*dispatch.Event)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}

	var latency int64
	if ev.Session != nil {
		latency = ev.Session.HeartbeatLatency().Milliseconds()
	}
	return ev.Reply(ctx, dispatch.Reply{Content: fmt.Sprintf("🏓 Pong! %dms", latency)})
}

func init() {
	cmd.DefaultRegistry.Register(&PingCommand{})
}
