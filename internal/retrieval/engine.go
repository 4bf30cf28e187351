package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"docquery/internal/models"
	"docquery/internal/store"
)

// ErrRetrieval marks a search-backend failure. Fatal for the request; there
// is no degraded answer without context.
var ErrRetrieval = errors.New("retrieval failed")

// Engine merges vector and lexical search over the chunk store into one
// ranked result set.
type Engine struct {
	store        store.ChunkStore
	vectorFloor  float64
	lexicalScore float64
	snippetMax   int
}

func NewEngine(s store.ChunkStore, vectorFloor, lexicalScore float64, snippetMax int) *Engine {
	return &Engine{
		store:        s,
		vectorFloor:  vectorFloor,
		lexicalScore: lexicalScore,
		snippetMax:   snippetMax,
	}
}

// Search runs vector search and, when lexical is set, full-text search
// concurrently, then merges by chunk identity. A chunk found by both keeps
// its vector similarity; a lexical-only hit gets the fixed lexical score,
// which sits below the vector floor so it can never outrank a genuine
// vector match. Results are sorted by descending final score and truncated
// to topK.
func (e *Engine) Search(ctx context.Context, queryEmbedding []float32, queryText string, f store.Filter, topK int, lexical bool) ([]models.RetrievedResult, error) {
	var (
		vectorHits  []store.ScoredChunk
		lexicalHits []store.ScoredChunk
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.store.SearchChunks(gctx, queryEmbedding, f, topK)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vectorHits = hits
		return nil
	})
	if lexical {
		g.Go(func() error {
			hits, err := e.store.TextSearch(gctx, queryText, f, topK)
			if err != nil {
				return fmt.Errorf("text search: %w", err)
			}
			lexicalHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	merged := e.merge(vectorHits, lexicalHits)
	if len(merged) > topK {
		merged = merged[:topK]
	}

	log.Debug().
		Int("vector", len(vectorHits)).
		Int("lexical", len(lexicalHits)).
		Int("merged", len(merged)).
		Msg("hybrid search complete")
	return merged, nil
}

func (e *Engine) merge(vectorHits, lexicalHits []store.ScoredChunk) []models.RetrievedResult {
	byID := make(map[string]models.RetrievedResult)

	for _, h := range vectorHits {
		if h.Score < e.vectorFloor {
			continue
		}
		byID[h.Chunk.ID] = models.RetrievedResult{
			Chunk:      h.Chunk,
			FinalScore: h.Score,
			ScoreType:  models.ScoreVector,
		}
	}
	for _, h := range lexicalHits {
		if _, seen := byID[h.Chunk.ID]; seen {
			// vector relevance is more trustworthy, keep its score
			continue
		}
		byID[h.Chunk.ID] = models.RetrievedResult{
			Chunk:      h.Chunk,
			FinalScore: e.lexicalScore,
			ScoreType:  models.ScoreLexical,
		}
	}

	merged := make([]models.RetrievedResult, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].FinalScore != merged[j].FinalScore {
			return merged[i].FinalScore > merged[j].FinalScore
		}
		return merged[i].Chunk.ID < merged[j].Chunk.ID
	})
	return merged
}

// Restrict applies the answer-only projection: snippet truncation and
// removal of path-like internal metadata. Runs after merge, before any
// model sees the chunks; ranking is unaffected.
func (e *Engine) Restrict(results []models.RetrievedResult) []models.RetrievedResult {
	out := make([]models.RetrievedResult, len(results))
	for i, r := range results {
		c := r.Chunk
		if e.snippetMax > 0 && len(c.Content) > e.snippetMax {
			cut := e.snippetMax
			// back off to a rune boundary so the snippet stays valid utf-8
			for cut > 0 && !utf8.RuneStart(c.Content[cut]) {
				cut--
			}
			c.Content = c.Content[:cut]
		}
		if len(c.Metadata) > 0 {
			filtered := make(map[string]string, len(c.Metadata))
			for k, v := range c.Metadata {
				lk := strings.ToLower(k)
				if strings.Contains(lk, "path") || strings.HasPrefix(lk, "internal") {
					continue
				}
				filtered[k] = v
			}
			c.Metadata = filtered
		}
		out[i] = models.RetrievedResult{Chunk: c, FinalScore: r.FinalScore, ScoreType: r.ScoreType}
	}
	return out
}
