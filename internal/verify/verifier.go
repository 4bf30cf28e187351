package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"docquery/internal/models"
	"docquery/internal/provider"
)

// ModelCaller is the slice of the router verification needs: a single
// invocation plus provider resolution so we can avoid the primary's vendor.
type ModelCaller interface {
	Invoke(ctx context.Context, modelID string, msgs []provider.Message, tools []llms.Tool, temperature float64) (*provider.Response, error)
	ModelProviderName(modelID string) string
}

// Verifier asks a model from a different provider whether an answer is
// supported by its citations.
type Verifier struct {
	caller ModelCaller
	chain  []string // candidate verifier model ids, in preference order
}

func NewVerifier(caller ModelCaller, chain []string) *Verifier {
	return &Verifier{caller: caller, chain: chain}
}

// Verify never returns an error: a failed verifying call yields
// supported=nil with the failure as rationale, so the caller can always
// attach a result.
func (v *Verifier) Verify(ctx context.Context, answer string, citations []models.Citation, primaryProvider string) models.VerificationResult {
	modelID := v.pickModel(primaryProvider)
	if modelID == "" {
		return models.VerificationResult{
			Rationale: "no verifier model available from a different provider",
		}
	}

	var citationText strings.Builder
	for _, c := range citations {
		citationText.WriteString(fmt.Sprintf("[%d] %s\n%s\n", c.ID, c.Title, c.Snippet))
		citationText.WriteString(models.ContextSeparator)
	}
	prompt := fmt.Sprintf(models.VerifyPromptTemplate, answer, citationText.String())

	resp, err := v.caller.Invoke(ctx, modelID, []provider.Message{
		{Role: provider.RoleUser, Content: prompt},
	}, nil, 0)
	if err != nil {
		// indeterminate, never coerced to true/false
		log.Warn().Err(err).Str("model", modelID).Msg("verification call failed")
		return models.VerificationResult{
			Model:     modelID,
			Rationale: fmt.Sprintf("verification failed: %v", err),
		}
	}

	supported, rationale := parseVerdict(resp.Answer)
	return models.VerificationResult{
		Model:     modelID,
		Supported: supported,
		Rationale: rationale,
	}
}

// pickModel returns the first chain candidate whose provider differs from
// the one that produced the primary answer.
func (v *Verifier) pickModel(primaryProvider string) string {
	for _, id := range v.chain {
		if v.caller.ModelProviderName(id) != primaryProvider {
			return id
		}
	}
	return ""
}

type verdict struct {
	Supported *bool  `json:"supported"`
	Rationale string `json:"rationale"`
}

func parseVerdict(text string) (*bool, string) {
	block := text
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			block = rest[:end]
		}
	}
	start := strings.Index(block, "{")
	end := strings.LastIndex(block, "}")
	if start >= 0 && end > start {
		var v verdict
		if err := json.Unmarshal([]byte(block[start:end+1]), &v); err == nil && v.Supported != nil {
			return v.Supported, v.Rationale
		}
	}
	// model ignored the format: indeterminate, raw text as rationale
	return nil, strings.TrimSpace(text)
}
