package store

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"docquery/internal/models"
)

const (
	embeddedCollection = "chunks"
	embeddedCompress   = false
)

// Embedded is a ChunkStore on chromem-go, for local mode and tests. Vector
// search goes through the chromem collection; lexical search is a term-match
// scan over the chunks held in memory alongside it.
type Embedded struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
	encKey     string

	mu     sync.RWMutex
	chunks map[string]models.DocumentChunk
	audits []models.AuditEntry
}

func NewEmbedded(dbPath string, inMemory bool, encryptionKey string) (*Embedded, error) {
	var (
		db  *chromem.DB
		err error
	)
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, embeddedCompress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(embeddedCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Embedded{
		db:         db,
		collection: collection,
		dbPath:     dbPath,
		encKey:     encryptionKey,
		chunks:     make(map[string]models.DocumentChunk),
	}, nil
}

func (s *Embedded) StoreChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				"doc_id": c.DocID,
				"org_id": c.OrgID,
			},
			Embedding: c.Embedding,
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}

	s.mu.Lock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	s.mu.Unlock()
	return nil
}

func (s *Embedded) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.collection.Delete(ctx, map[string]string{"doc_id": docID}, nil); err != nil {
		return err
	}
	s.mu.Lock()
	for id, c := range s.chunks {
		if c.DocID == docID {
			delete(s.chunks, id)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Embedded) SearchChunks(ctx context.Context, embedding []float32, f Filter, limit int) ([]ScoredChunk, error) {
	s.mu.RLock()
	orgCount := 0
	for _, c := range s.chunks {
		if c.OrgID == f.Scope.OrgID {
			orgCount++
		}
	}
	s.mu.RUnlock()
	if orgCount == 0 {
		return nil, nil
	}

	// over-fetch so room and doc filtering still fills the limit, but never
	// past what the org filter can return
	n := limit * 4
	if n > orgCount {
		n = orgCount
	}
	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
		Where:          map[string]string{"org_id": f.Scope.OrgID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ScoredChunk
	for _, r := range results {
		c, ok := s.chunks[r.ID]
		if !ok || !f.matches(c) {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: float64(r.Similarity)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Embedded) TextSearch(ctx context.Context, query string, f Filter, limit int) ([]ScoredChunk, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ScoredChunk
	for _, c := range s.chunks {
		if !f.matches(c) {
			continue
		}
		content := strings.ToLower(c.Content)
		matched := 0
		for _, t := range terms {
			if strings.Contains(content, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: float64(matched) / float64(len(terms))})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Embedded) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	s.audits = append(s.audits, entry)
	s.mu.Unlock()
	return nil
}

// Audits returns a copy of the appended audit entries.
func (s *Embedded) Audits() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, len(s.audits))
	copy(out, s.audits)
	return out
}

// Export writes an encrypted snapshot of the collection next to the db path.
func (s *Embedded) Export(ctx context.Context) error {
	if s.encKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	filePath := s.dbPath + "/" + embeddedCollection + ".chromem"
	if err := s.db.ExportToFile(filePath, embeddedCompress, s.encKey, embeddedCollection); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}
