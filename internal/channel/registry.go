package channel

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the registered gateway adapters. It must be created via
// NewRegistry and passed explicitly to the components that need it.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ChannelType]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[ChannelType]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	ct := normalizeChannelType(adapter.Type().String())
	if ct == "" {
		return fmt.Errorf("channel type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[ct]; exists {
		return fmt.Errorf("channel type already registered: %s", ct)
	}
	r.adapters[ct] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given channel type.
func (r *Registry) Get(channelType ChannelType) (Adapter, bool) {
	ct := normalizeChannelType(channelType.String())
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[ct]
	return adapter, ok
}

// GetSender returns the adapter as a Sender when it supports sending.
func (r *Registry) GetSender(channelType ChannelType) (Sender, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return nil, false
	}
	sender, ok := adapter.(Sender)
	return sender, ok
}

// Receivers returns every registered adapter that accepts inbound connections, ordered by type.
func (r *Registry) Receivers() []Receiver {
	types := r.Types()
	out := make([]Receiver, 0, len(types))
	for _, ct := range types {
		adapter, _ := r.Get(ct)
		if recv, ok := adapter.(Receiver); ok {
			out = append(out, recv)
		}
	}
	return out
}

// Types returns the registered channel types in sorted order.
func (r *Registry) Types() []ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChannelType, 0, len(r.adapters))
	for ct := range r.adapters {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
