package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docquery/internal/helper"
	"docquery/internal/models"
)

// Logger fingerprints completed queries and appends them to the audit
// store. Log-then-ignore: a logging failure never fails the query that
// produced it.
type Logger struct {
	store   AuditStore
	timeout time.Duration
	wg      sync.WaitGroup
}

// AuditStore is the append-only sink.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

func NewLogger(store AuditStore, timeout time.Duration) *Logger {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Logger{store: store, timeout: timeout}
}

// BuildEntry computes one-way content fingerprints of the question and the
// serialized citations/web results, and records provider, model, the mode
// actually served, ordered source ids and the scope triple.
func BuildEntry(req models.QueryRequest, resp *models.QueryResponse) (models.AuditEntry, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return models.AuditEntry{}, err
	}

	outputHash, err := helper.FingerprintJSON(struct {
		Citations  []models.Citation  `json:"citations"`
		WebResults []models.WebResult `json:"web_results"`
	}{resp.Citations, resp.WebResults})
	if err != nil {
		return models.AuditEntry{}, err
	}

	var sourceIDs []string
	seen := make(map[string]bool)
	for _, c := range resp.Citations {
		if c.URL != "" || seen[c.Title] {
			continue
		}
		seen[c.Title] = true
		sourceIDs = append(sourceIDs, c.Title)
	}

	citationsJSON, err := helper.MarshalString(resp.Citations)
	if err != nil {
		return models.AuditEntry{}, err
	}

	return models.AuditEntry{
		ID:            id,
		QuestionHash:  helper.Fingerprint([]byte(req.Question)),
		OutputHash:    outputHash,
		Provider:      resp.Provider,
		Model:         req.Model,
		Mode:          resp.Mode.String(),
		SourceIDs:     sourceIDs,
		OrgID:         req.Scope.OrgID,
		RoomID:        req.Scope.RoomID,
		OwnerID:       req.Scope.OwnerID,
		CitationsJSON: citationsJSON,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Record appends the entry in a detached goroutine with its own deadline,
// so a slow or broken audit sink cannot hold up or fail the query path.
func (l *Logger) Record(req models.QueryRequest, resp *models.QueryResponse) {
	entry, err := BuildEntry(req, resp)
	if err != nil {
		log.Warn().Err(err).Msg("audit entry build failed")
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.store.AppendAudit(ctx, entry); err != nil {
			log.Warn().Err(err).Str("audit_id", entry.ID).Msg("audit append failed")
		}
	}()
}

// Wait blocks until every in-flight append has finished. Short-lived
// callers flush with it before exiting so the last entry is not dropped.
func (l *Logger) Wait() {
	l.wg.Wait()
}
