package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"docquery/internal/config"
	"docquery/internal/models"
)

// local reasoning models wrap their chain of thought in think tags
var thinkRe = regexp.MustCompile(models.ThinkTag)

// OllamaProvider runs against a local ollama server. No credential needed;
// a missing base url is the configuration failure here.
type OllamaProvider struct {
	name string
	cfg  config.ProviderConfig
}

func NewOllamaProvider(name string, cfg config.ProviderConfig) *OllamaProvider {
	return &OllamaProvider{name: name, cfg: cfg}
}

func (p *OllamaProvider) Name() string { return p.name }

func (p *OllamaProvider) Invoke(ctx context.Context, inv Invocation) (*Response, error) {
	if p.cfg.BaseURL == "" {
		return nil, NewConfigurationError(p.name, "missing server url")
	}

	llm, err := ollama.New(
		ollama.WithServerURL(p.cfg.BaseURL),
		ollama.WithModel(inv.Model),
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

	answer := strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, ""))
	return &Response{
		Answer:   answer,
		Usage:    usageFromChoice(res.Choices[0].GenerationInfo),
		Provider: p.name,
	}, nil
}
