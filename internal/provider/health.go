package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"docquery/internal/models"
)

// Health is one provider's probe outcome.
type Health struct {
	Provider  string `json:"provider"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthProbe invokes a minimal prompt against every configured provider
// concurrently. Each probe writes into its own slot so one slow or broken
// provider cannot cancel or corrupt the others; the returned order is the
// stable registry order, not completion order.
func (r *Router) HealthProbe(ctx context.Context) []Health {
	results := make([]Health, len(r.order))

	var wg sync.WaitGroup
	for i, name := range r.order {
		wg.Add(1)
		go func(slot int, name string) {
			defer wg.Done()
			results[slot] = r.probeOne(ctx, name)
		}(i, name)
	}
	wg.Wait()

	return results
}

func (r *Router) probeOne(ctx context.Context, name string) Health {
	h := Health{Provider: name}

	variant := r.probeVariant(name)
	if variant == "" {
		h.Error = "no model configured for provider"
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	_, err := r.providers[name].Invoke(ctx, Invocation{
		Model:    variant,
		Messages: []Message{{Role: RoleUser, Content: models.HealthProbePrompt}},
	})
	h.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.OK = true
	return h
}

// probeVariant picks a deterministic model variant for a provider: the
// primary of its first configured model id in sorted order.
func (r *Router) probeVariant(provider string) string {
	ids := make([]string, 0, len(r.models))
	for id, mc := range r.models {
		if mc.Provider == provider {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return r.models[ids[0]].Primary
}
