package provider

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docquery/internal/config"
)

// OpenAIProvider talks to any OpenAI-compatible endpoint (OpenAI proper,
// OpenRouter, local gateways).
type OpenAIProvider struct {
	name string
	cfg  config.ProviderConfig
}

func NewOpenAIProvider(name string, cfg config.ProviderConfig) *OpenAIProvider {
	return &OpenAIProvider{name: name, cfg: cfg}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Invoke(ctx context.Context, inv Invocation) (*Response, error) {
	if p.cfg.Key == "" {
		return nil, NewConfigurationError(p.name, "missing api key")
	}

	llm, err := openai.New(
		openai.WithBaseURL(p.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(p.cfg.Key, "Bearer ")),
		openai.WithModel(inv.Model),
	)
	if err != nil {
		return nil, NewConfigurationError(p.name, err.Error())
	}

	opts := []llms.CallOption{llms.WithTemperature(inv.Temperature)}
	if len(inv.Tools) > 0 {
		opts = append(opts, llms.WithTools(inv.Tools))
	}

	res, err := llm.GenerateContent(ctx, toLangchainMessages(inv.Messages), opts...)
	if err != nil {
		return nil, Classify(p.name, err)
	}
	if len(res.Choices) == 0 {
		return nil, NewHTTPError(p.name, 502, "empty choices in response")
	}

	choice := res.Choices[0]
	log.Debug().Str("provider", p.name).Str("model", inv.Model).Msg("generated content")
	return &Response{
		Answer:   choice.Content,
		Usage:    usageFromChoice(choice.GenerationInfo),
		Provider: p.name,
	}, nil
}
