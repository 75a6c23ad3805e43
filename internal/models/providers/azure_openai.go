package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureOpenAIProvider implements the Provider interface for Azure OpenAI
type AzureOpenAIProvider struct {
	client         *azopenai.Client
	deploymentName string
	temperature    float32
	maxTokens      int32
}

// NewAzureOpenAIProvider creates a new Azure OpenAI provider. BaseURL is the
// resource endpoint and Model the deployment name; both fall back to the
// AZURE_OPENAI_* environment variables.
func NewAzureOpenAIProvider(opts Options) (*AzureOpenAIProvider, error) {
	endpoint := firstNonEmpty(opts.BaseURL, os.Getenv("AZURE_OPENAI_ENDPOINT"))
	apiKey := firstNonEmpty(opts.APIKey, os.Getenv("AZURE_OPENAI_API_KEY"))
	deploymentName := firstNonEmpty(opts.Model, os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"))

	if endpoint == "" || apiKey == "" || deploymentName == "" {
		return nil, fmt.Errorf("Azure OpenAI configuration missing: ensure endpoint, API key and deployment name are set")
	}

	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	opts = opts.withDefaults(deploymentName)
	return &AzureOpenAIProvider{
		client:         client,
		deploymentName: deploymentName,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
	}, nil
}

// Name returns the provider name
func (p *AzureOpenAIProvider) Name() string {
	return "azure"
}

// Model returns the deployment name.
func (p *AzureOpenAIProvider) Model() string {
	return p.deploymentName
}

// Complete implements the Provider interface. Messages are flattened into a
// single user turn.
func (p *AzureOpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	prompt, err := flatten(messages)
	if err != nil {
		return "", err
	}

	resp, err := p.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(prompt),
			},
		},
		MaxTokens:      to.Ptr(p.maxTokens),
		Temperature:    to.Ptr(p.temperature),
		DeploymentName: to.Ptr(p.deploymentName),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("azure: %w", ErrEmptyResponse)
	}

	return *resp.Choices[0].Message.Content, nil
}

func flatten(messages []Message) (string, error) {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
			parts = append(parts, msg.Content)
		default:
			return "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
