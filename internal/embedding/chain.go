package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docquery/internal/config"
)

// ErrEmbeddingFailed means the whole embedder chain was exhausted. The
// ingestion item must be marked failed; substituting a synthetic vector
// would silently poison the similarity index.
var ErrEmbeddingFailed = errors.New("embedding_failed")

// Embedder produces a vector for one text.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

type langchainEmbedder struct {
	name     string
	embedder *embeddings.EmbedderImpl
}

func (e *langchainEmbedder) Name() string { return e.name }

func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

// NewOpenAIEmbedder wraps an OpenAI-compatible embedding endpoint.
func NewOpenAIEmbedder(name string, pc config.ProviderConfig, model string) (Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(pc.BaseURL),
		openai.WithToken(strings.TrimPrefix(pc.Key, "Bearer ")),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &langchainEmbedder{name: name, embedder: embedder}, nil
}

// NewOllamaEmbedder wraps a local ollama embedding model.
func NewOllamaEmbedder(name string, pc config.ProviderConfig, model string) (Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(pc.BaseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &langchainEmbedder{name: name, embedder: embedder}, nil
}

// Chain tries embedders in order until one returns a vector.
type Chain struct {
	embedders []Embedder
}

func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	var embedders []Embedder
	for _, ec := range cfg.Embedders {
		pc, ok := cfg.Providers[ec.Provider]
		if !ok {
			return nil, fmt.Errorf("embedder references unknown provider %q", ec.Provider)
		}
		var (
			e   Embedder
			err error
		)
		if ec.Provider == "ollama" {
			e, err = NewOllamaEmbedder(ec.Provider, pc, ec.Model)
		} else {
			e, err = NewOpenAIEmbedder(ec.Provider, pc, ec.Model)
		}
		if err != nil {
			return nil, err
		}
		embedders = append(embedders, e)
	}
	return &Chain{embedders: embedders}, nil
}

func NewChain(embedders ...Embedder) *Chain {
	return &Chain{embedders: embedders}
}

// Embed returns the first successful vector. Exhaustion returns
// ErrEmbeddingFailed wrapped around the last failure.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(c.embedders) == 0 {
		return nil, fmt.Errorf("%w: no embedders configured", ErrEmbeddingFailed)
	}
	var lastErr error
	for _, e := range c.embedders {
		vec, err := e.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		log.Warn().Err(err).Str("embedder", e.Name()).Msg("embedder failed, trying next")
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, lastErr)
}
