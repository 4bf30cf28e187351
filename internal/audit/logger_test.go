package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/models"
)

type sinkFunc func(ctx context.Context, entry models.AuditEntry) error

func (f sinkFunc) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	return f(ctx, entry)
}

func sampleReqResp() (models.QueryRequest, *models.QueryResponse) {
	req := models.QueryRequest{
		Question: "what changed in Q3?",
		Model:    "gpt-4o",
		Mode:     models.ModeDocs,
		Scope:    models.Scope{OrgID: "org1", RoomID: "room1", OwnerID: "u1"},
	}
	resp := &models.QueryResponse{
		Answer: "revenue grew [1]",
		Citations: []models.Citation{
			{ID: 1, Title: "q3.pdf", Snippet: "revenue grew 4%"},
			{ID: 2, Title: "q3.pdf", Snippet: "costs flat"},
			{ID: 3, Title: "annex.pdf", Snippet: "detail"},
		},
		Mode:     models.ModeDocs,
		Provider: "openrouter",
	}
	return req, resp
}

func TestBuildEntryFingerprints(t *testing.T) {
	req, resp := sampleReqResp()

	e1, err := BuildEntry(req, resp)
	require.NoError(t, err)
	e2, err := BuildEntry(req, resp)
	require.NoError(t, err)

	// deterministic content fingerprints, fresh entry ids
	assert.Equal(t, e1.QuestionHash, e2.QuestionHash)
	assert.Equal(t, e1.OutputHash, e2.OutputHash)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Len(t, e1.QuestionHash, 64)

	// never the raw content
	assert.NotContains(t, e1.QuestionHash, "Q3")
	assert.NotEqual(t, req.Question, e1.QuestionHash)
}

func TestBuildEntryFields(t *testing.T) {
	req, resp := sampleReqResp()

	e, err := BuildEntry(req, resp)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", e.Provider)
	assert.Equal(t, "gpt-4o", e.Model)
	assert.Equal(t, "docs", e.Mode)
	assert.Equal(t, "org1", e.OrgID)
	assert.Equal(t, "room1", e.RoomID)
	// source ids are ordered and deduplicated
	assert.Equal(t, []string{"q3.pdf", "annex.pdf"}, e.SourceIDs)
	assert.Contains(t, e.CitationsJSON, "revenue grew 4%")
	assert.False(t, e.CreatedAt.IsZero())
}

func TestBuildEntryModeActuallyServed(t *testing.T) {
	req, resp := sampleReqResp()
	req.Mode = models.ModeWeb
	resp.Mode = models.ModeHybrid

	e, err := BuildEntry(req, resp)
	require.NoError(t, err)
	assert.Equal(t, "hybrid", e.Mode)
}

func TestRecordSwallowsSinkFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sink := sinkFunc(func(ctx context.Context, entry models.AuditEntry) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("sink offline")
	})

	l := NewLogger(sink, time.Second)
	req, resp := sampleReqResp()

	// must not panic or surface the sink failure
	l.Record(req, resp)
	l.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestWaitFlushesPendingAppends(t *testing.T) {
	var mu sync.Mutex
	var appended []models.AuditEntry
	sink := sinkFunc(func(ctx context.Context, entry models.AuditEntry) error {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		appended = append(appended, entry)
		mu.Unlock()
		return nil
	})

	l := NewLogger(sink, time.Second)
	req, resp := sampleReqResp()
	l.Record(req, resp)
	l.Record(req, resp)

	// after Wait returns, nothing is still in flight
	l.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, appended, 2)
}
