package store

import (
	"context"

	"docquery/internal/models"
)

// ScoredChunk is a chunk row plus the backend's raw relevance score.
type ScoredChunk struct {
	Chunk models.DocumentChunk
	Score float64
}

// Filter narrows a search to the caller's scope triple and, optionally, a
// document id set. OrgID always filters; an empty RoomID means org-wide.
type Filter struct {
	Scope  models.Scope
	DocIDs []string
}

// ChunkStore is the narrow contract the engine holds over the durable
// store: scope-filtered vector and lexical search, append-only chunk and
// audit writes. The index itself lives behind this line.
type ChunkStore interface {
	StoreChunks(ctx context.Context, chunks []models.DocumentChunk) error
	DeleteDocument(ctx context.Context, docID string) error
	SearchChunks(ctx context.Context, embedding []float32, f Filter, limit int) ([]ScoredChunk, error)
	TextSearch(ctx context.Context, query string, f Filter, limit int) ([]ScoredChunk, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

func (f Filter) matches(c models.DocumentChunk) bool {
	if c.OrgID != f.Scope.OrgID {
		return false
	}
	if f.Scope.RoomID != "" && c.RoomID != f.Scope.RoomID {
		return false
	}
	if len(f.DocIDs) > 0 {
		found := false
		for _, id := range f.DocIDs {
			if c.DocID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
