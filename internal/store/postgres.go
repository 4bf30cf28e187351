package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docquery/internal/config"
	"docquery/internal/models"
)

type chunkRow struct {
	bun.BaseModel `bun:"table:document_chunks,alias:c"`
	ID            string            `bun:"id,pk"`
	DocID         string            `bun:"doc_id,notnull"`
	SourceName    string            `bun:"source_name"`
	Content       string            `bun:"content,notnull"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
	OrgID         string            `bun:"org_id,notnull"`
	RoomID        string            `bun:"room_id"`
	OwnerID       string            `bun:"owner_id"`
	ChunkIndex    int               `bun:"chunk_index"`
	PageNumber    int               `bun:"page_number"`
	Confidence    float64           `bun:"confidence"`
	Method        string            `bun:"method"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Score         float64           `bun:"score,scanonly"`
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_log,alias:a"`
	ID            string    `bun:"id,pk"`
	QuestionHash  string    `bun:"question_hash,notnull"`
	OutputHash    string    `bun:"output_hash,notnull"`
	Provider      string    `bun:"provider"`
	Model         string    `bun:"model"`
	Mode          string    `bun:"mode"`
	SourceIDs     []string  `bun:"source_ids,array"`
	OrgID         string    `bun:"org_id,notnull"`
	RoomID        string    `bun:"room_id"`
	OwnerID       string    `bun:"owner_id"`
	CitationsJSON string    `bun:"citations_json"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Postgres is the durable ChunkStore: pgvector for similarity, tsvector for
// lexical search, both scope-filtered in SQL.
type Postgres struct {
	db *bun.DB
}

func ConnectDB(cfg *config.StorageConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "sslmode") {
		dsn += "?sslmode=disable"
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

func NewPostgres(sqldb *sql.DB, debug bool) *Postgres {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Postgres{db: db}
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

// InitDB creates the chunk and audit tables if they do not exist.
func (s *Postgres) InitDB(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*auditRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Postgres) StoreChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = chunkRow{
			ID:         c.ID,
			DocID:      c.DocID,
			SourceName: c.SourceName,
			Content:    c.Content,
			Embedding:  c.Embedding,
			OrgID:      c.OrgID,
			RoomID:     c.RoomID,
			OwnerID:    c.OwnerID,
			ChunkIndex: c.ChunkIndex,
			PageNumber: c.PageNumber,
			Confidence: c.Confidence,
			Method:     c.Method,
			Metadata:   c.Metadata,
		}
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (s *Postgres) DeleteDocument(ctx context.Context, docID string) error {
	_, err := s.db.NewDelete().Model((*chunkRow)(nil)).Where("doc_id = ?", docID).Exec(ctx)
	return err
}

func (s *Postgres) SearchChunks(ctx context.Context, embedding []float32, f Filter, limit int) ([]ScoredChunk, error) {
	lit := vectorLiteral(embedding)
	var rows []chunkRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", lit)
	q = applyFilter(q, f)
	err := q.OrderExpr("embedding <=> ?::vector", lit).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toScored(rows), nil
}

func (s *Postgres) TextSearch(ctx context.Context, query string, f Filter, limit int) ([]ScoredChunk, error) {
	var rows []chunkRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("ts_rank(to_tsvector('english', content), plainto_tsquery('english', ?)) AS score", query).
		Where("to_tsvector('english', content) @@ plainto_tsquery('english', ?)", query)
	q = applyFilter(q, f)
	err := q.OrderExpr("score DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toScored(rows), nil
}

func (s *Postgres) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	row := auditRow{
		ID:            entry.ID,
		QuestionHash:  entry.QuestionHash,
		OutputHash:    entry.OutputHash,
		Provider:      entry.Provider,
		Model:         entry.Model,
		Mode:          entry.Mode,
		SourceIDs:     entry.SourceIDs,
		OrgID:         entry.OrgID,
		RoomID:        entry.RoomID,
		OwnerID:       entry.OwnerID,
		CitationsJSON: entry.CitationsJSON,
		CreatedAt:     entry.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

func applyFilter(q *bun.SelectQuery, f Filter) *bun.SelectQuery {
	q = q.Where("org_id = ?", f.Scope.OrgID)
	if f.Scope.RoomID != "" {
		q = q.Where("room_id = ?", f.Scope.RoomID)
	}
	if len(f.DocIDs) > 0 {
		q = q.Where("doc_id IN (?)", bun.In(f.DocIDs))
	}
	return q
}

func toScored(rows []chunkRow) []ScoredChunk {
	out := make([]ScoredChunk, len(rows))
	for i, r := range rows {
		out[i] = ScoredChunk{
			Chunk: models.DocumentChunk{
				ID:         r.ID,
				DocID:      r.DocID,
				SourceName: r.SourceName,
				Content:    r.Content,
				Embedding:  r.Embedding,
				OrgID:      r.OrgID,
				RoomID:     r.RoomID,
				OwnerID:    r.OwnerID,
				ChunkIndex: r.ChunkIndex,
				PageNumber: r.PageNumber,
				Confidence: r.Confidence,
				Method:     r.Method,
				Metadata:   r.Metadata,
			},
			Score: r.Score,
		}
	}
	return out
}

// vectorLiteral renders a pgvector text literal like [0.1,0.2,0.3].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
