package provider

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"docquery/internal/models"
)

// message roles in the common schema
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair in the common message schema. Each
// vendor client translates it into its own wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Invocation is one model call: target variant, ordered messages, optional
// tool declarations and temperature. Ephemeral.
type Invocation struct {
	Model       string
	Messages    []Message
	Tools       []llms.Tool
	Temperature float64
}

// Response is a normalized provider reply.
type Response struct {
	Answer   string
	Usage    models.Usage
	Provider string
}

// ModelProvider is the uniform invocation contract, one implementation per
// vendor. Errors returned are always classified *Error values.
type ModelProvider interface {
	Name() string
	Invoke(ctx context.Context, inv Invocation) (*Response, error)
}

// toLangchainMessages converts the common schema into langchaingo content.
func toLangchainMessages(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// usageFromChoice pulls token counters out of langchaingo generation info.
func usageFromChoice(info map[string]any) models.Usage {
	var u models.Usage
	if info == nil {
		return u
	}
	if v, ok := info["PromptTokens"].(int); ok {
		u.PromptTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		u.CompletionTokens = v
	}
	return u
}
