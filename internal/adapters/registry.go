package adapters

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/starnote/ai-gateway/internal/config"
)

// Registry maps providers to their adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Provider]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Provider]Adapter),
	}
}

// NewDefaultRegistry registers the OpenAI and Gemini adapters from config.
// Both share one streaming HTTP client.
func NewDefaultRegistry(cfg config.ProvidersConfig, client *http.Client) *Registry {
	if client == nil {
		client = NewStreamingClient()
	}
	r := NewRegistry()
	r.Register(NewOpenAIAdapter(cfg.OpenAI, client))
	r.Register(NewGeminiAdapter(cfg.Gemini, client))
	return r
}

// Register adds an adapter under its own provider, replacing any previous one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for a provider.
// Returns nil if no adapter is registered.
func (r *Registry) Get(provider Provider) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[provider]
}

// Lookup returns the adapter for a provider or ErrUnknownProvider.
func (r *Registry) Lookup(provider Provider) (Adapter, error) {
	a := r.Get(provider)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return a, nil
}

// Providers returns all registered provider names, sorted.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.adapters))
	for p := range r.adapters {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
