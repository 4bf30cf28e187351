package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/config"
)

// mockProvider scripts responses per model variant.
type mockProvider struct {
	name    string
	calls   []Invocation
	results map[string]*Response
	errs    map[string]error
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Invoke(ctx context.Context, inv Invocation) (*Response, error) {
	m.calls = append(m.calls, inv)
	if err, ok := m.errs[inv.Model]; ok {
		return nil, err
	}
	if resp, ok := m.results[inv.Model]; ok {
		return resp, nil
	}
	return &Response{Answer: "ok", Provider: m.name}, nil
}

func testRouter(t *testing.T, mocks ...*mockProvider) *Router {
	t.Helper()
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{},
		Models:    map[string]config.ModelConfig{},
		RAG:       config.RAGConfig{TimeoutSeconds: 5},
	}
	for _, m := range mocks {
		cfg.Providers[m.name] = config.ProviderConfig{Key: "test"}
		cfg.Models[m.name+"-model"] = config.ModelConfig{
			Provider:  m.name,
			Primary:   m.name + "-primary",
			Secondary: m.name + "-secondary",
		}
	}
	r, err := NewRouter(cfg)
	require.NoError(t, err)
	for _, m := range mocks {
		r.Register(m)
	}
	return r
}

func TestInvokeVariantFallback(t *testing.T) {
	m := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary": NewHTTPError("alpha", 503, "overloaded"),
		},
		results: map[string]*Response{
			"alpha-secondary": {Answer: "from secondary", Provider: "alpha"},
		},
	}
	r := testRouter(t, m)

	resp, err := r.Invoke(context.Background(), "alpha-model", []Message{{Role: RoleUser, Content: "hi"}}, nil, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "from secondary", resp.Answer)

	require.Len(t, m.calls, 2)
	assert.Equal(t, "alpha-primary", m.calls[0].Model)
	assert.Equal(t, "alpha-secondary", m.calls[1].Model)
	// temperature preserved across the retry
	assert.Equal(t, 0.7, m.calls[1].Temperature)
}

func TestInvokeBothVariantsFail(t *testing.T) {
	m := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary":   NewHTTPError("alpha", 503, "overloaded"),
			"alpha-secondary": NewHTTPError("alpha", 503, "also overloaded"),
		},
	}
	r := testRouter(t, m)

	_, err := r.Invoke(context.Background(), "alpha-model", nil, nil, 0)
	require.Error(t, err)
	// both variants were attempted, the primary's failure surfaces
	require.Len(t, m.calls, 2)
	assert.Equal(t, "alpha-secondary", m.calls[1].Model)
	assert.Contains(t, err.Error(), "overloaded")
	assert.True(t, IsTransient(err))
}

func TestInvokeNoVariantFallbackOnPermanent(t *testing.T) {
	m := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary": NewHTTPError("alpha", 400, "bad request"),
		},
	}
	r := testRouter(t, m)

	_, err := r.Invoke(context.Background(), "alpha-model", nil, nil, 0)
	require.Error(t, err)
	// permanent errors are not retried on the same provider
	assert.Len(t, m.calls, 1)
}

func TestInvokeChainFallsBackToNextProvider(t *testing.T) {
	failing := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary":   NewHTTPError("alpha", 500, "down"),
			"alpha-secondary": NewHTTPError("alpha", 500, "down"),
		},
	}
	healthy := &mockProvider{
		name: "beta",
		results: map[string]*Response{
			"beta-primary": {Answer: "fallback answer", Provider: "beta"},
		},
	}
	r := testRouter(t, failing, healthy)

	resp, err := r.InvokeChain(context.Background(), []string{"alpha-model", "beta-model"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "beta", resp.Provider)
	assert.Equal(t, "fallback answer", resp.Answer)
}

func TestInvokeChainPermanentStillFallsBack(t *testing.T) {
	failing := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary": NewHTTPError("alpha", 422, "malformed"),
		},
	}
	healthy := &mockProvider{name: "beta"}
	r := testRouter(t, failing, healthy)

	resp, err := r.InvokeChain(context.Background(), []string{"alpha-model", "beta-model"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "beta", resp.Provider)
}

func TestInvokeChainConfigurationAborts(t *testing.T) {
	misconfigured := &mockProvider{
		name: "alpha",
		errs: map[string]error{
			"alpha-primary": NewConfigurationError("alpha", "missing api key"),
		},
	}
	healthy := &mockProvider{name: "beta"}
	r := testRouter(t, misconfigured, healthy)

	_, err := r.InvokeChain(context.Background(), []string{"alpha-model", "beta-model"}, nil, nil, 0)
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	// the chain never reached beta
	assert.Empty(t, healthy.calls)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		want   Class
	}{
		{status: 500, want: ClassTransient},
		{status: 503, want: ClassTransient},
		{status: 429, want: ClassTransient},
		{status: 408, want: ClassTransient},
		{status: 400, want: ClassPermanent},
		{status: 404, want: ClassPermanent},
		{status: 422, want: ClassPermanent},
	}
	for _, tc := range cases {
		err := NewHTTPError("p", tc.status, "x")
		assert.Equal(t, tc.want, err.Class, "status %d", tc.status)
		assert.True(t, err.ProviderError)
	}
}

func TestModelProviderName(t *testing.T) {
	r := testRouter(t, &mockProvider{name: "alpha"})
	assert.Equal(t, "alpha", r.ModelProviderName("alpha-model"))
	assert.Equal(t, "", r.ModelProviderName("nope"))
}
