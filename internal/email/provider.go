package email

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter is the base interface every email adapter must implement.
type Adapter interface {
	Type() ProviderName
	Meta() ProviderMeta
	NormalizeConfig(raw map[string]any) (map[string]any, error)
}

// Sender sends outbound emails.
type Sender interface {
	Send(ctx context.Context, config map[string]any, msg OutboundEmail) (messageID string, err error)
}

// Registry holds all registered email adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ProviderName]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[ProviderName]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Type()] = a
}

func (r *Registry) Get(name ProviderName) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("email adapter not found: %s", name)
	}
	return a, nil
}

func (r *Registry) GetSender(name ProviderName) (Sender, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	s, ok := a.(Sender)
	if !ok {
		return nil, fmt.Errorf("email adapter %s does not support sending", name)
	}
	return s, nil
}

func (r *Registry) ListMeta() []ProviderMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metas := make([]ProviderMeta, 0, len(r.adapters))
	for _, a := range r.adapters {
		metas = append(metas, a.Meta())
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Provider < metas[j].Provider })
	return metas
}

// RenderHTML returns the HTML body of msg, executing its template when set.
func RenderHTML(msg OutboundEmail) (string, error) {
	if msg.Template == nil {
		if msg.HTML {
			return msg.Body, nil
		}
		return "", nil
	}
	var buf bytes.Buffer
	if err := msg.Template.Execute(&buf, msg.Data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}
