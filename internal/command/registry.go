package command

import "github.com/bwmarrin/discordgo"

// Registry maps command names to descriptors and remembers scan order.
// A registry is filled once by the loader and only read afterwards.
type Registry struct {
	order  []string
	byName map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Put stores d under d.Name and returns the descriptor it replaced, if any.
// A replaced name keeps its original position. Disabled descriptors are
// never stored.
func (r *Registry) Put(d *Descriptor) *Descriptor {
	if d == nil || !d.Enabled {
		return nil
	}
	prev, ok := r.byName[d.Name]
	if !ok {
		r.order = append(r.order, d.Name)
	}
	r.byName[d.Name] = d
	return prev
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.byName[name]
	return d, ok
}

// All returns descriptors in scan order.
func (r *Registry) All() []*Descriptor {
	if r == nil {
		return nil
	}
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns command names in scan order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len reports the number of commands.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Definitions returns every command schema in scan order. The result is
// never nil, so an empty registry serializes as an empty list.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, r.Len())
	for _, d := range r.All() {
		defs = append(defs, d.Schema())
	}
	return defs
}
