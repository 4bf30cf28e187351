package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"docquery/internal/audit"
	"docquery/internal/config"
	"docquery/internal/embedding"
	"docquery/internal/models"
	"docquery/internal/provider"
	"docquery/internal/retrieval"
	"docquery/internal/store"
	"docquery/internal/synthesis"
	"docquery/internal/verify"
)

// Engine coordinates one query end to end: retrieval, synthesis, the
// web-to-hybrid fallback, verification and audit. Each call is an
// independent unit; the chunk store is the only shared resource.
type Engine struct {
	cfg       *config.Config
	retriever *retrieval.Engine
	synth     *synthesis.Synthesizer
	verifier  *verify.Verifier
	audit     *audit.Logger
	embedder  *embedding.Chain
}

func NewEngine(cfg *config.Config, retriever *retrieval.Engine, synth *synthesis.Synthesizer, verifier *verify.Verifier, auditLogger *audit.Logger, embedder *embedding.Chain) *Engine {
	return &Engine{
		cfg:       cfg,
		retriever: retriever,
		synth:     synth,
		verifier:  verifier,
		audit:     auditLogger,
		embedder:  embedder,
	}
}

// Query serves one request. Docs, Hybrid and Code are terminal states: any
// failure surfaces to the caller. Web falls back to Hybrid exactly once on
// a transient or HTTP-class provider failure; the response reports the mode
// actually served.
func (e *Engine) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if req.Scope.OrgID == "" {
		return nil, fmt.Errorf("org scope is required")
	}

	chain := e.answerChain(req.Model)
	served := req.Mode

	var (
		ans *synthesis.Answer
		err error
	)
	switch req.Mode {
	case models.ModeDocs:
		ans, err = e.corpusAnswer(ctx, req, chain, false)
	case models.ModeHybrid:
		ans, err = e.corpusAnswer(ctx, req, chain, true)
	case models.ModeCode:
		ans, err = e.synth.AnswerCode(ctx, req.Question, chain)
	case models.ModeWeb:
		ans, err = e.synth.AnswerFromWeb(ctx, req.Question)
		if err != nil && (provider.IsTransient(err) || provider.IsHTTPFailure(err)) {
			log.Warn().Err(err).Msg("web provider failed, re-executing as hybrid")
			served = models.ModeHybrid
			ans, err = e.corpusAnswer(ctx, req, chain, true)
		}
	default:
		return nil, fmt.Errorf("unknown mode: %v", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	resp := &models.QueryResponse{
		Answer:             ans.Text,
		Citations:          ans.Citations,
		WebResults:         ans.WebResults,
		Code:               ans.Code,
		SearchResultsCount: ans.ResultsCount,
		Mode:               served,
		Provider:           ans.Provider,
		Usage:              ans.Usage,
	}

	if req.Verifier && len(ans.Citations) > 0 {
		v := e.verifier.Verify(ctx, ans.Text, ans.Citations, ans.Provider)
		resp.Verification = &v
	}

	e.audit.Record(req, resp)
	return resp, nil
}

// corpusAnswer serves docs mode (vector only) and hybrid mode (vector plus
// lexical) from the document corpus.
func (e *Engine) corpusAnswer(ctx context.Context, req models.QueryRequest, chain []string, lexical bool) (*synthesis.Answer, error) {
	vec, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filter := store.Filter{Scope: req.Scope, DocIDs: req.DocIDs}
	results, err := e.retriever.Search(ctx, vec, req.Question, filter, e.cfg.RAG.TopK, lexical)
	if err != nil {
		return nil, err
	}

	return e.synth.AnswerFromDocs(ctx, req.Question, e.retriever.Restrict(results), chain)
}

// answerChain puts the requested model first, followed by the configured
// fallback chain with duplicates removed.
func (e *Engine) answerChain(model string) []string {
	var chain []string
	seen := make(map[string]bool)
	if model != "" {
		chain = append(chain, model)
		seen[model] = true
	}
	for _, id := range e.cfg.Chains["answer"] {
		if !seen[id] {
			chain = append(chain, id)
			seen[id] = true
		}
	}
	return chain
}
