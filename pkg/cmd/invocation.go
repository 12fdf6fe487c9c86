// Package cmd is the transport-agnostic handler core: a handler has a key,
// a short description, and Run(ctx, invocation). Which interaction reaches it,
// and under what authorization, is decided by the dispatch layer.
package cmd

import "context"

// Invocation carries what a dispatcher hands to a handler. Args holds the
// flattened option values in declaration order; Data holds the dispatcher's
// event (for the Discord router, *dispatch.Event).
type Invocation struct {
	Args []string
	Data interface{}
}

// Command is the handler contract. Name is the catalog key manifests refer to.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Func adapts a plain function to Command.
type Func struct {
	Key  string
	Desc string
	Fn   func(ctx context.Context, inv *Invocation) error
}

func (f *Func) Name() string        { return f.Key }
func (f *Func) Description() string { return f.Desc }

func (f *Func) Run(ctx context.Context, inv *Invocation) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, inv)
}
