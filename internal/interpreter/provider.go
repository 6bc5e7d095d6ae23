// internal/interpreter/provider.go
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
)

// ErrUnknownProvider is returned for names that were never registered.
var ErrUnknownProvider = errors.New("unknown interpreter provider")

// Provider is anything that can turn narration into a DreamMap. The keyword
// engine is the built-in provider; a remote inference backend can register
// under another name and keep the same contract.
type Provider interface {
	// Initialize configures the provider.
	Initialize(config map[string]string) error

	// GetName returns the registry name.
	GetName() string

	// Interpret builds a map from narration.
	Interpret(ctx context.Context, narration string) (*models.DreamMap, error)
}

// ProviderFactory creates an uninitialised provider.
type ProviderFactory func() Provider

// Registry holds provider factories by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// DefaultRegistry has the keyword provider registered.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(KeywordProviderName, func() Provider { return &KeywordProvider{} })
}

// Register adds or replaces a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// GetProvider creates and initialises the named provider.
func (r *Registry) GetProvider(name string, config map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, fmt.Errorf("initialize provider %s: %w", name, err)
	}
	return provider, nil
}

// GetAvailableProviders returns registered names in sorted order.
func (r *Registry) GetAvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeywordProviderName is the registry name of the keyword engine.
const KeywordProviderName = "keyword"

// KeywordProvider adapts Engine to the Provider interface.
//
// Recognised config keys: "latency_ms" (simulated delay, negative disables)
// and "seed" (deterministic placement).
type KeywordProvider struct {
	engine *Engine
}

// NewKeywordProvider wraps an existing engine.
func NewKeywordProvider(engine *Engine) *KeywordProvider {
	return &KeywordProvider{engine: engine}
}

// Initialize implements Provider.
func (p *KeywordProvider) Initialize(config map[string]string) error {
	var opts Options
	if v, ok := config["latency_ms"]; ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("latency_ms: %w", err)
		}
		opts.Latency = time.Duration(ms) * time.Millisecond
		if ms == 0 {
			opts.Latency = -1
		}
	}
	if v, ok := config["seed"]; ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		opts.Random = NewSeededSource(seed)
	}
	p.engine = NewEngine(opts)
	return nil
}

// GetName implements Provider.
func (p *KeywordProvider) GetName() string {
	return KeywordProviderName
}

// Interpret implements Provider.
func (p *KeywordProvider) Interpret(ctx context.Context, narration string) (*models.DreamMap, error) {
	if p.engine == nil {
		p.engine = NewEngine(Options{})
	}
	return p.engine.Interpret(ctx, narration)
}
