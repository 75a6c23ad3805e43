package providers

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider interface for LLM providers
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options are the settings shared by every provider constructor. Sampling
// settings are fixed for the lifetime of a provider.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int32
}

func (o Options) withDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2000
	}
	return o
}
