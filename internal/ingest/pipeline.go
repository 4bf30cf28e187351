package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"docquery/internal/embedding"
	"docquery/internal/helper"
	"docquery/internal/models"
	"docquery/internal/parser"
	"docquery/internal/store"
)

// Status of one ingested document.
type Status string

const (
	StatusStored Status = "stored"
	StatusFailed Status = "failed"
)

// Result reports what happened to one source file.
type Result struct {
	DocID      string `json:"doc_id"`
	SourceName string `json:"source_name"`
	Status     Status `json:"status"`
	Chunks     int    `json:"chunks"`
	Reason     string `json:"reason,omitempty"`
}

// Pipeline turns a source file into persisted, scoped, embedded chunks:
// extract, chunk per page, embed, store. Same file ingested twice produces
// an independent second chunk set; callers wanting idempotency delete the
// prior document first.
type Pipeline struct {
	extractor *parser.Chain
	embedder  *embedding.Chain
	store     store.ChunkStore
	chunkSize int
	overlap   int
}

func NewPipeline(extractor *parser.Chain, embedder *embedding.Chain, s store.ChunkStore, chunkSize, overlap int) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     s,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// IngestFile processes one file under the caller's scope. An extraction or
// embedding chain exhaustion marks the document failed instead of storing
// partial or synthetic data.
func (p *Pipeline) IngestFile(ctx context.Context, filePath string, scope models.Scope) (*Result, error) {
	docID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	sourceName := filepath.Base(filePath)
	res := &Result{DocID: docID, SourceName: sourceName}

	pages, err := p.extractor.Extract(ctx, filePath)
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		log.Error().Err(err).Str("file", filePath).Msg("document extraction failed")
		return res, nil
	}

	var chunks []models.DocumentChunk
	index := 0
	for _, page := range pages {
		for _, text := range embedding.Chunk(page.Text, p.chunkSize, p.overlap) {
			vec, err := p.embedder.Embed(ctx, text)
			if err != nil {
				// embedding_failed: fail the document loudly, never store a
				// synthetic vector
				res.Status = StatusFailed
				res.Reason = err.Error()
				log.Error().Err(err).Str("file", filePath).Msg("document embedding failed")
				return res, nil
			}
			id, err := helper.GenerateUUID()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, models.DocumentChunk{
				ID:         id,
				DocID:      docID,
				SourceName: sourceName,
				Content:    text,
				Embedding:  vec,
				OrgID:      scope.OrgID,
				RoomID:     scope.RoomID,
				OwnerID:    scope.OwnerID,
				ChunkIndex: index,
				PageNumber: page.Number,
				Confidence: page.Confidence,
				Method:     page.Method,
			})
			index++
		}
	}

	if len(chunks) == 0 {
		res.Status = StatusFailed
		res.Reason = "no text content"
		return res, nil
	}

	if err := p.store.StoreChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	res.Status = StatusStored
	res.Chunks = len(chunks)
	log.Info().Str("doc_id", docID).Int("chunks", len(chunks)).Msg("document ingested")
	return res, nil
}

// DeleteDocument removes a previously ingested chunk set, for callers that
// want idempotent re-ingestion.
func (p *Pipeline) DeleteDocument(ctx context.Context, docID string) error {
	return p.store.DeleteDocument(ctx, docID)
}
