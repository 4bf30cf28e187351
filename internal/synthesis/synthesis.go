package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"docquery/internal/models"
	"docquery/internal/provider"
	"docquery/internal/websearch"
)

// InsufficientAnswer is served when docs/hybrid retrieval finds nothing;
// there is no point paying a provider to say the same thing.
const InsufficientAnswer = "The available documents do not contain enough information to answer this question."

const answerTemperature = 0.2

// ModelCaller is the slice of the provider router synthesis needs.
type ModelCaller interface {
	InvokeChain(ctx context.Context, modelIDs []string, msgs []provider.Message, tools []llms.Tool, temperature float64) (*provider.Response, error)
}

// WebSearcher is the web-search provider contract.
type WebSearcher interface {
	Search(ctx context.Context, query string) (*websearch.Result, error)
}

// Answer is a synthesized response before top-level assembly.
type Answer struct {
	Text         string
	Citations    []models.Citation
	WebResults   []models.WebResult
	Code         *models.CodeOutput
	Provider     string
	Usage        models.Usage
	ResultsCount int
}

// Synthesizer builds mode-specific prompts and parses mode-specific
// responses.
type Synthesizer struct {
	caller ModelCaller
	web    WebSearcher
}

func NewSynthesizer(caller ModelCaller, web WebSearcher) *Synthesizer {
	return &Synthesizer{caller: caller, web: web}
}

// BuildDocsPrompt renders retrieved passages with bracket-numbered markers
// and returns the matching citation list. Citation ids are 1-based and
// contiguous, in the same order as the markers.
func BuildDocsPrompt(results []models.RetrievedResult) (string, []models.Citation) {
	var passages strings.Builder
	citations := make([]models.Citation, 0, len(results))
	for i, r := range results {
		n := i + 1
		passages.WriteString(fmt.Sprintf(models.PassageTemplate, n, r.Chunk.SourceName, r.Chunk.PageNumber, r.Chunk.Content))
		passages.WriteString(models.ContextSeparator)
		citations = append(citations, models.Citation{
			ID:      n,
			Title:   r.Chunk.SourceName,
			Page:    r.Chunk.PageNumber,
			Snippet: r.Chunk.Content,
			Score:   r.FinalScore,
		})
	}
	return fmt.Sprintf(models.DocsSystemPromptTemplate, passages.String()), citations
}

// AnswerFromDocs serves docs and hybrid mode: corpus passages in, cited
// answer out. An empty result set short-circuits to the insufficiency
// answer without a provider call.
func (s *Synthesizer) AnswerFromDocs(ctx context.Context, question string, results []models.RetrievedResult, chain []string) (*Answer, error) {
	if len(results) == 0 {
		return &Answer{Text: InsufficientAnswer, Citations: []models.Citation{}}, nil
	}

	prompt, citations := BuildDocsPrompt(results)
	resp, err := s.caller.InvokeChain(ctx, chain, []provider.Message{
		{Role: provider.RoleSystem, Content: prompt},
		{Role: provider.RoleUser, Content: question},
	}, nil, answerTemperature)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:         resp.Answer,
		Citations:    citations,
		Provider:     resp.Provider,
		Usage:        resp.Usage,
		ResultsCount: len(results),
	}, nil
}

// AnswerFromWeb delegates to the web-search provider and normalizes its
// native citations into the common shape.
func (s *Synthesizer) AnswerFromWeb(ctx context.Context, question string) (*Answer, error) {
	res, err := s.web.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	citations := make([]models.Citation, 0, len(res.Citations))
	for i, w := range res.Citations {
		title := w.Title
		if title == "" {
			title = w.URL
		}
		citations = append(citations, models.Citation{
			ID:      i + 1,
			Title:   title,
			Snippet: w.Snippet,
			URL:     w.URL,
		})
	}

	return &Answer{
		Text:         res.Answer,
		Citations:    citations,
		WebResults:   res.Citations,
		Provider:     "websearch",
		ResultsCount: len(res.Citations),
	}, nil
}

// AnswerCode bypasses retrieval: the instruction is the whole payload. The
// structured block is best-effort; when it fails to parse the answer
// degrades to raw text instead of failing the request.
func (s *Synthesizer) AnswerCode(ctx context.Context, question string, chain []string) (*Answer, error) {
	resp, err := s.caller.InvokeChain(ctx, chain, []provider.Message{
		{Role: provider.RoleSystem, Content: models.CodeSystemPrompt},
		{Role: provider.RoleUser, Content: question},
	}, nil, answerTemperature)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:      resp.Answer,
		Citations: []models.Citation{},
		Code:      ParseCodeOutput(resp.Answer),
		Provider:  resp.Provider,
		Usage:     resp.Usage,
	}, nil
}
