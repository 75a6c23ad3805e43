package models

import (
	"context"
	"fmt"
	"sync"

	"agentforge/internal/config"
	"agentforge/internal/models/providers"
)

const systemPrompt = "You are an expert cybersecurity workforce architect. You design AI agent profiles and answer with a single JSON object."

// ProviderFactory builds a provider from shared options.
type ProviderFactory func(opts providers.Options) (providers.Provider, error)

// ModelRegistry manages the configured text generation provider
type ModelRegistry struct {
	cfg       config.GenerationConfig
	factories map[string]ProviderFactory
	instances map[string]providers.Provider
	mu        sync.Mutex
}

// NewModelRegistry creates a new model registry
func NewModelRegistry(cfg config.GenerationConfig) *ModelRegistry {
	return &ModelRegistry{
		cfg: cfg,
		factories: map[string]ProviderFactory{
			config.ProviderOpenAI: func(o providers.Options) (providers.Provider, error) {
				return providers.NewOpenAIProvider(o)
			},
			config.ProviderGitHubModels: func(o providers.Options) (providers.Provider, error) {
				return providers.NewGitHubModelsProvider(o)
			},
			config.ProviderOllama: func(o providers.Options) (providers.Provider, error) {
				return providers.NewOllamaProvider(o)
			},
			config.ProviderAzure: func(o providers.Options) (providers.Provider, error) {
				return providers.NewAzureOpenAIProvider(o)
			},
		},
		instances: make(map[string]providers.Provider),
	}
}

// Register adds or replaces the factory for a provider name.
func (r *ModelRegistry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.instances, name)
}

// ProviderName returns the configured provider, or "none".
func (r *ModelRegistry) ProviderName() string {
	if r.cfg.Provider == config.ProviderNone {
		return "none"
	}
	return r.cfg.Provider
}

// GetProvider returns an initialized provider instance
func (r *ModelRegistry) GetProvider(name string) (providers.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Return cached instance if available
	if p, exists := r.instances[name]; exists {
		return p, nil
	}

	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	p, err := factory(providers.Options{
		Model:       r.cfg.Model,
		APIKey:      r.cfg.APIKey,
		BaseURL:     r.cfg.BaseURL,
		Temperature: float32(r.cfg.Temperature),
		MaxTokens:   int32(r.cfg.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
	}

	r.instances[name] = p
	return p, nil
}

// Generator returns a text generator for the configured provider, or nil
// when generation is disabled.
func (r *ModelRegistry) Generator() (*Generator, error) {
	if r.cfg.Provider == config.ProviderNone {
		return nil, nil
	}
	p, err := r.GetProvider(r.cfg.Provider)
	if err != nil {
		return nil, err
	}
	return &Generator{provider: p}, nil
}

// Generator adapts a Provider to single-prompt text generation.
type Generator struct {
	provider providers.Provider
}

// NewGenerator wraps p.
func NewGenerator(p providers.Provider) *Generator {
	return &Generator{provider: p}
}

func (g *Generator) Name() string  { return g.provider.Name() }
func (g *Generator) Model() string { return g.provider.Model() }

// Generate sends prompt as a user message after the fixed system prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: prompt},
	})
}

// TestProvider checks that the configured provider answers a short prompt.
func (r *ModelRegistry) TestProvider(ctx context.Context) (bool, error) {
	g, err := r.Generator()
	if err != nil {
		return false, err
	}
	if g == nil {
		return false, fmt.Errorf("no generation provider configured")
	}

	if _, err := g.provider.Complete(ctx, []providers.Message{
		{Role: providers.RoleUser, Content: "Hello, are you working? Please respond with a short answer."},
	}); err != nil {
		return false, err
	}
	return true, nil
}
