package cmd

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultRegistry is the handler catalog populated from package init()
// functions. Command manifests bind to handlers by key through it.
var DefaultRegistry = NewRegistry()

// Registry stores handlers by key. It does not dispatch; the command loader
// resolves manifest handler keys against it.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a handler. It panics if c is nil or its key is taken.
func (r *Registry) Register(c Command) {
	if c == nil {
		panic("cmd: Register handler is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[c.Name()]; dup {
		panic(fmt.Sprintf("cmd: Register called twice for handler %q", c.Name()))
	}
	r.commands[c.Name()] = c
}

// Get returns the handler registered under key.
func (r *Registry) Get(key string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[key]
	return c, ok
}

// GetAll returns all registered handlers, sorted by key.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Len reports the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
