package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"tableside/internal/config"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	OpenAIProvider    ProviderType = "openai"
	AnthropicProvider ProviderType = "anthropic"
	OllamaProvider    ProviderType = "ollama"
)

// NewFromConfig initializes the configured provider and wraps it as a Model
func NewFromConfig(cfg config.LLMConfig) (*LangChain, error) {
	model, err := initializeModel(cfg)
	if err != nil {
		return nil, err
	}

	var opts []llms.CallOption
	if cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return NewLangChain(model, cfg.Stream, opts...), nil
}

// initializeModel creates a langchaingo model based on provider type
func initializeModel(cfg config.LLMConfig) (llms.Model, error) {
	switch ProviderType(cfg.Provider) {
	case OpenAIProvider:
		return initializeOpenAI(cfg)
	case AnthropicProvider:
		return initializeAnthropic(cfg)
	case OllamaProvider:
		return initializeOllama(cfg)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", cfg.Provider)
	}
}

// initializeOpenAI creates an OpenAI (or OpenAI-compatible) model
func initializeOpenAI(cfg config.LLMConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI model: %w", err)
	}
	return model, nil
}

// initializeAnthropic creates an Anthropic model
func initializeAnthropic(cfg config.LLMConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model, err := anthropic.New(
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Anthropic model: %w", err)
	}
	return model, nil
}

// initializeOllama creates a local Ollama model
func initializeOllama(cfg config.LLMConfig) (llms.Model, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Ollama model: %w", err)
	}
	return model, nil
}
