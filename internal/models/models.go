package models

import "time"

// Scope is the (organization, room, owner) isolation triple. It is supplied
// by the caller and trusted verbatim; retrieval filters on it so no chunk
// ever crosses an organization boundary.
type Scope struct {
	OrgID   string `json:"org_id"`
	RoomID  string `json:"room_id,omitempty"`
	OwnerID string `json:"owner_id,omitempty"`
}

// DocumentChunk is the unit of retrieval. Immutable once written;
// re-ingestion writes a new chunk set rather than mutating this one.
type DocumentChunk struct {
	ID         string            `json:"id"`
	DocID      string            `json:"doc_id"`
	SourceName string            `json:"source_name"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"-"`
	OrgID      string            `json:"org_id"`
	RoomID     string            `json:"room_id,omitempty"`
	OwnerID    string            `json:"owner_id,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
	PageNumber int               `json:"page_number"`
	Confidence float64           `json:"confidence"`
	Method     string            `json:"method"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ScoreType tells which search produced a retrieved result.
type ScoreType string

const (
	ScoreVector  ScoreType = "vector"
	ScoreLexical ScoreType = "lexical"
)

// RetrievedResult is a chunk plus its final rank score. Lives only within
// one retrieval call.
type RetrievedResult struct {
	Chunk      DocumentChunk
	FinalScore float64
	ScoreType  ScoreType
}

// Citation is a numbered, user-facing reference backing a claim in an
// answer. IDs are 1-based and contiguous within one answer, and match the
// bracket markers embedded in the prompt.
type Citation struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Page    int     `json:"page,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	URL     string  `json:"url,omitempty"`
}

// WebResult is a normalized web-search hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// VerificationResult is the outcome of a cross-model fact check.
// Supported is nil when the verifying call itself failed.
type VerificationResult struct {
	Model     string `json:"model"`
	Supported *bool  `json:"supported"`
	Rationale string `json:"rationale"`
}

// CodeFile is one generated file in a code-mode answer.
type CodeFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CodeOutput is the structured part of a code-mode answer. Every field is
// optional; a response that parses to none of them degrades to raw text.
type CodeOutput struct {
	Files    []CodeFile `json:"files,omitempty"`
	Commands []string   `json:"commands,omitempty"`
	Output   string     `json:"output,omitempty"`
}

// Usage carries provider-reported token counters.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// QueryRequest is the top-level query contract input.
type QueryRequest struct {
	Question string   `json:"question"`
	Model    string   `json:"model"`
	Mode     Mode     `json:"mode"`
	Scope    Scope    `json:"scope"`
	DocIDs   []string `json:"doc_ids,omitempty"`
	Verifier bool     `json:"verifier"`
}

// QueryResponse is the top-level query contract output. Mode is the mode
// actually served, which may differ from the requested one after a
// web-to-hybrid fallback.
type QueryResponse struct {
	Answer             string              `json:"answer"`
	Citations          []Citation          `json:"citations"`
	WebResults         []WebResult         `json:"web_results,omitempty"`
	Code               *CodeOutput         `json:"code,omitempty"`
	Verification       *VerificationResult `json:"verification"`
	SearchResultsCount int                 `json:"search_results_count"`
	Mode               Mode                `json:"mode"`
	Provider           string              `json:"provider"`
	Usage              Usage               `json:"usage"`
}

// AuditEntry records one completed query. Content is fingerprinted, not
// stored. Append-only.
type AuditEntry struct {
	ID            string    `json:"id"`
	QuestionHash  string    `json:"question_hash"`
	OutputHash    string    `json:"output_hash"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	Mode          string    `json:"mode"`
	SourceIDs     []string  `json:"source_ids,omitempty"`
	OrgID         string    `json:"org_id"`
	RoomID        string    `json:"room_id,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"`
	CitationsJSON string    `json:"citations_json,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
