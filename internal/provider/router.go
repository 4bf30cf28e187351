package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"docquery/internal/config"
)

// Router resolves model ids to vendor clients and applies the two fallback
// layers: secondary-variant retry inside one provider, and caller-driven
// chains across providers.
type Router struct {
	providers map[string]ModelProvider
	models    map[string]config.ModelConfig
	order     []string // provider names, stable
	timeout   time.Duration
}

// NewRouter builds vendor clients from the provider table. The map key
// selects the client kind: "anthropic" and "ollama" get their own clients,
// everything else is treated as OpenAI-compatible.
func NewRouter(cfg *config.Config) (*Router, error) {
	providers := make(map[string]ModelProvider, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		switch name {
		case "anthropic":
			providers[name] = NewAnthropicProvider(name, pc)
		case "ollama":
			providers[name] = NewOllamaProvider(name, pc)
		default:
			providers[name] = NewOpenAIProvider(name, pc)
		}
		order = append(order, name)
	}
	sort.Strings(order)

	return &Router{
		providers: providers,
		models:    cfg.Models,
		order:     order,
		timeout:   time.Duration(cfg.RAG.TimeoutSeconds) * time.Second,
	}, nil
}

// Register adds or replaces a provider. Used by tests and by callers that
// bring their own client.
func (r *Router) Register(p ModelProvider) {
	name := p.Name()
	if _, ok := r.providers[name]; !ok {
		r.order = append(r.order, name)
		sort.Strings(r.order)
	}
	r.providers[name] = p
}

// Invoke resolves modelID and calls its provider's primary variant. A
// transient failure with a configured secondary variant is retried once,
// silently, with the same temperature and tools.
func (r *Router) Invoke(ctx context.Context, modelID string, msgs []Message, tools []llms.Tool, temperature float64) (*Response, error) {
	mc, ok := r.models[modelID]
	if !ok {
		return nil, fmt.Errorf("unknown model id: %q", modelID)
	}
	p, ok := r.providers[mc.Provider]
	if !ok {
		return nil, fmt.Errorf("model %q references unknown provider %q", modelID, mc.Provider)
	}

	inv := Invocation{Model: mc.Primary, Messages: msgs, Tools: tools, Temperature: temperature}
	resp, err := r.invokeBounded(ctx, p, inv)
	if err == nil {
		return resp, nil
	}

	if IsTransient(err) && mc.Secondary != "" {
		log.Warn().Err(err).
			Str("provider", mc.Provider).
			Str("primary", mc.Primary).
			Str("secondary", mc.Secondary).
			Msg("primary variant failed, retrying secondary")
		inv.Model = mc.Secondary
		resp, retryErr := r.invokeBounded(ctx, p, inv)
		if retryErr == nil {
			return resp, nil
		}
		log.Warn().Err(retryErr).
			Str("provider", mc.Provider).
			Str("secondary", mc.Secondary).
			Msg("secondary variant also failed")
	}
	return nil, err
}

// InvokeChain tries model ids in order until one succeeds. Configuration
// errors abort the whole chain; transient and permanent failures move on to
// the next provider.
func (r *Router) InvokeChain(ctx context.Context, modelIDs []string, msgs []Message, tools []llms.Tool, temperature float64) (*Response, error) {
	if len(modelIDs) == 0 {
		return nil, fmt.Errorf("empty model chain")
	}
	var lastErr error
	for _, id := range modelIDs {
		resp, err := r.Invoke(ctx, id, msgs, tools, temperature)
		if err == nil {
			return resp, nil
		}
		if IsConfiguration(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("model", id).Msg("chain candidate failed, trying next")
		lastErr = err
	}
	return nil, lastErr
}

// ModelProviderName reports which provider a model id resolves to.
func (r *Router) ModelProviderName(modelID string) string {
	if mc, ok := r.models[modelID]; ok {
		return mc.Provider
	}
	return ""
}

func (r *Router) invokeBounded(ctx context.Context, p ModelProvider, inv Invocation) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return p.Invoke(ctx, inv)
}
