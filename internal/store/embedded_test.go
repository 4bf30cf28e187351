package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/models"
)

func embeddedStore(t *testing.T) *Embedded {
	t.Helper()
	s, err := NewEmbedded("", true, "")
	require.NoError(t, err)
	return s
}

func seedChunks(t *testing.T, s *Embedded) {
	t.Helper()
	err := s.StoreChunks(context.Background(), []models.DocumentChunk{
		{ID: "a1", DocID: "docA", OrgID: "org1", RoomID: "room1", Content: "alpha invoice totals", Embedding: []float32{1, 0, 0}},
		{ID: "a2", DocID: "docA", OrgID: "org1", RoomID: "room1", Content: "alpha shipping terms", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "b1", DocID: "docB", OrgID: "org1", RoomID: "room2", Content: "beta contract clauses", Embedding: []float32{0, 1, 0}},
		{ID: "x1", DocID: "docX", OrgID: "org2", RoomID: "room1", Content: "alpha invoice totals", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
}

func TestEmbeddedScopeIsolation(t *testing.T) {
	s := embeddedStore(t)
	seedChunks(t, s)
	ctx := context.Background()

	// vector search never crosses the org boundary, even for identical
	// content and embeddings
	hits, err := s.SearchChunks(ctx, []float32{1, 0, 0}, Filter{Scope: models.Scope{OrgID: "org1"}}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "org1", h.Chunk.OrgID)
	}

	// lexical search too
	lex, err := s.TextSearch(ctx, "alpha invoice", Filter{Scope: models.Scope{OrgID: "org2"}}, 10)
	require.NoError(t, err)
	require.Len(t, lex, 1)
	assert.Equal(t, "x1", lex[0].Chunk.ID)
}

func TestEmbeddedRoomNarrowsOrgIsolates(t *testing.T) {
	s := embeddedStore(t)
	seedChunks(t, s)
	ctx := context.Background()

	// org-wide query sees both rooms
	all, err := s.TextSearch(ctx, "alpha beta", Filter{Scope: models.Scope{OrgID: "org1"}}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// a room filter narrows within the org
	room, err := s.TextSearch(ctx, "alpha beta", Filter{Scope: models.Scope{OrgID: "org1", RoomID: "room2"}}, 10)
	require.NoError(t, err)
	require.Len(t, room, 1)
	assert.Equal(t, "b1", room[0].Chunk.ID)
}

func TestEmbeddedDocIDFilter(t *testing.T) {
	s := embeddedStore(t)
	seedChunks(t, s)

	hits, err := s.TextSearch(context.Background(), "alpha", Filter{
		Scope:  models.Scope{OrgID: "org1"},
		DocIDs: []string{"docA"},
	}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "docA", h.Chunk.DocID)
	}
}

func TestEmbeddedTextSearchRanking(t *testing.T) {
	s := embeddedStore(t)
	seedChunks(t, s)

	hits, err := s.TextSearch(context.Background(), "alpha invoice", Filter{Scope: models.Scope{OrgID: "org1"}}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	// both terms match a1, only one matches a2
	assert.Equal(t, "a1", hits[0].Chunk.ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestEmbeddedDeleteDocument(t *testing.T) {
	s := embeddedStore(t)
	seedChunks(t, s)
	ctx := context.Background()

	require.NoError(t, s.DeleteDocument(ctx, "docA"))

	hits, err := s.TextSearch(ctx, "alpha", Filter{Scope: models.Scope{OrgID: "org1"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	vec, err := s.SearchChunks(ctx, []float32{1, 0, 0}, Filter{Scope: models.Scope{OrgID: "org1"}}, 10)
	require.NoError(t, err)
	for _, h := range vec {
		assert.NotEqual(t, "docA", h.Chunk.DocID)
	}
}

func TestEmbeddedAuditAppendOnly(t *testing.T) {
	s := embeddedStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAudit(ctx, models.AuditEntry{ID: "e1", QuestionHash: "h1"}))
	require.NoError(t, s.AppendAudit(ctx, models.AuditEntry{ID: "e2", QuestionHash: "h2"}))

	audits := s.Audits()
	require.Len(t, audits, 2)
	assert.Equal(t, "e1", audits[0].ID)
	assert.Equal(t, "e2", audits[1].ID)
}
