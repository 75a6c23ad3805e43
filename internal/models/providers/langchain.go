package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	githubModelsBaseURL = "https://models.inference.ai.azure.com"

	defaultOpenAIModel       = "gpt-4o-mini"
	defaultGitHubModelsModel = "gpt-4o-mini"
	defaultOllamaModel       = "llama3.1"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("empty response from provider")

// LangChainProvider implements Provider on top of any langchaingo model.
type LangChainProvider struct {
	name        string
	model       string
	llm         llms.Model
	temperature float32
	maxTokens   int32
}

// NewLangChainProvider wraps an already constructed langchaingo model.
func NewLangChainProvider(name string, llm llms.Model, opts Options) *LangChainProvider {
	opts = opts.withDefaults("")
	return &LangChainProvider{
		name:        name,
		model:       opts.Model,
		llm:         llm,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// NewOpenAIProvider creates a provider for the OpenAI API. The key falls back
// to OPENAI_API_KEY.
func NewOpenAIProvider(opts Options) (*LangChainProvider, error) {
	opts = opts.withDefaults(defaultOpenAIModel)
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	clientOpts := []openai.Option{
		openai.WithModel(opts.Model),
		openai.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}

	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI model: %w", err)
	}
	return NewLangChainProvider("openai", llm, opts), nil
}

// NewGitHubModelsProvider creates a provider for GitHub Models, which exposes
// an OpenAI-compatible API. The token falls back to GITHUB_TOKEN.
func NewGitHubModelsProvider(opts Options) (*LangChainProvider, error) {
	opts = opts.withDefaults(defaultGitHubModelsModel)
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("GITHUB_TOKEN")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required for GitHub Models")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = githubModelsBaseURL
	}

	llm, err := openai.New(
		openai.WithModel(opts.Model),
		openai.WithToken(opts.APIKey),
		openai.WithBaseURL(opts.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	return NewLangChainProvider("github_models", llm, opts), nil
}

// NewOllamaProvider creates a provider for a local Ollama server.
func NewOllamaProvider(opts Options) (*LangChainProvider, error) {
	opts = opts.withDefaults(defaultOllamaModel)

	clientOpts := []ollama.Option{ollama.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, ollama.WithServerURL(opts.BaseURL))
	}

	llm, err := ollama.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return NewLangChainProvider("ollama", llm, opts), nil
}

// Name returns the provider name
func (p *LangChainProvider) Name() string {
	return p.name
}

// Model returns the model identifier requests are sent to.
func (p *LangChainProvider) Model() string {
	return p.model
}

// Complete implements the Provider interface
func (p *LangChainProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		case RoleUser:
			msgType = llms.ChatMessageTypeHuman
		default:
			return "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		content[i] = llms.TextParts(msgType, msg.Content)
	}

	opts := []llms.CallOption{
		llms.WithTemperature(float64(p.temperature)),
		llms.WithMaxTokens(int(p.maxTokens)),
	}
	if p.model != "" {
		opts = append(opts, llms.WithModel(p.model))
	}

	resp, err := p.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}
