package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"docquery/internal/config"
	"docquery/internal/models"
)

// AnthropicProvider speaks the messages API directly. Anthropic does not
// accept a "system" role inline, so Invoke lifts system messages into the
// request's top-level system field while keeping the rest in order.
type AnthropicProvider struct {
	name   string
	cfg    config.ProviderConfig
	client *http.Client
}

const anthropicMaxTokens = 4096

func NewAnthropicProvider(name string, cfg config.ProviderConfig) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *AnthropicProvider) Name() string { return p.name }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// splitSystem extracts system-role content into one string and returns the
// remaining messages in their original order.
func splitSystem(msgs []Message) (string, []anthropicMessage) {
	var system []string
	rest := make([]anthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "assistant"
		}
		rest = append(rest, anthropicMessage{Role: role, Content: m.Content})
	}
	return strings.Join(system, "\n\n"), rest
}

func toAnthropicTools(tools []llms.Tool) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		out = append(out, anthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	return out
}

func (p *AnthropicProvider) Invoke(ctx context.Context, inv Invocation) (*Response, error) {
	if p.cfg.Key == "" {
		return nil, NewConfigurationError(p.name, "missing api key")
	}

	system, messages := splitSystem(inv.Messages)
	payload := anthropicRequest{
		Model:       inv.Model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    messages,
		Temperature: inv.Temperature,
		Tools:       toAnthropicTools(inv.Tools),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, Classify(p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, Classify(p.name, err)
	}
	req.Header.Set("x-api-key", p.cfg.Key)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Classify(p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, NewHTTPError(p.name, resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, Classify(p.name, err)
	}
	if parsed.Error != nil {
		return nil, NewHTTPError(p.name, 502, parsed.Error.Message)
	}

	var answer strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			answer.WriteString(block.Text)
		}
	}

	return &Response{
		Answer: answer.String(),
		Usage: models.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
		},
		Provider: p.name,
	}, nil
}
