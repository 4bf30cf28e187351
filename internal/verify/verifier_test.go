package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"docquery/internal/models"
	"docquery/internal/provider"
)

type mockCaller struct {
	providerByModel map[string]string
	answer          string
	err             error
	invokedModel    string
}

func (m *mockCaller) Invoke(ctx context.Context, modelID string, msgs []provider.Message, tools []llms.Tool, temperature float64) (*provider.Response, error) {
	m.invokedModel = modelID
	if m.err != nil {
		return nil, m.err
	}
	return &provider.Response{Answer: m.answer, Provider: m.providerByModel[modelID]}, nil
}

func (m *mockCaller) ModelProviderName(modelID string) string {
	return m.providerByModel[modelID]
}

func citations() []models.Citation {
	return []models.Citation{{ID: 1, Title: "doc.pdf", Snippet: "the sky is blue"}}
}

func TestVerifyPicksDifferentProvider(t *testing.T) {
	caller := &mockCaller{
		providerByModel: map[string]string{
			"gpt-4o": "openrouter",
			"claude": "anthropic",
		},
		answer: `{"supported": true, "rationale": "matches citation"}`,
	}
	v := NewVerifier(caller, []string{"gpt-4o", "claude"})

	res := v.Verify(context.Background(), "the sky is blue [1]", citations(), "openrouter")
	// the first chain candidate shares the primary's provider, skip it
	assert.Equal(t, "claude", res.Model)
	assert.Equal(t, "claude", caller.invokedModel)
	require.NotNil(t, res.Supported)
	assert.True(t, *res.Supported)
	assert.Equal(t, "matches citation", res.Rationale)
}

func TestVerifyUnsupportedVerdict(t *testing.T) {
	caller := &mockCaller{
		providerByModel: map[string]string{"claude": "anthropic"},
		answer:          "```json\n{\"supported\": false, \"rationale\": \"claim not in citations\"}\n```",
	}
	v := NewVerifier(caller, []string{"claude"})

	res := v.Verify(context.Background(), "grass is red [1]", citations(), "openrouter")
	require.NotNil(t, res.Supported)
	assert.False(t, *res.Supported)
}

func TestVerifyCallFailureIsIndeterminate(t *testing.T) {
	caller := &mockCaller{
		providerByModel: map[string]string{"claude": "anthropic"},
		err:             provider.NewHTTPError("anthropic", 500, "down"),
	}
	v := NewVerifier(caller, []string{"claude"})

	res := v.Verify(context.Background(), "answer", citations(), "openrouter")
	// never coerced to true or false
	assert.Nil(t, res.Supported)
	assert.Contains(t, res.Rationale, "verification failed")
}

func TestVerifyNoDistinctProvider(t *testing.T) {
	caller := &mockCaller{providerByModel: map[string]string{"gpt-4o": "openrouter"}}
	v := NewVerifier(caller, []string{"gpt-4o"})

	res := v.Verify(context.Background(), "answer", citations(), "openrouter")
	assert.Nil(t, res.Supported)
	assert.Empty(t, res.Model)
	assert.Empty(t, caller.invokedModel)
}

func TestVerifyGarbageVerdict(t *testing.T) {
	caller := &mockCaller{
		providerByModel: map[string]string{"claude": "anthropic"},
		answer:          "I think it looks fine overall.",
	}
	v := NewVerifier(caller, []string{"claude"})

	res := v.Verify(context.Background(), "answer", citations(), "openrouter")
	assert.Nil(t, res.Supported)
	assert.Equal(t, "I think it looks fine overall.", res.Rationale)
}
