package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Display returns the label used when rendering history for prompts.
func (r Role) Display() string {
	if r == RoleUser {
		return "Human"
	}
	return "Assistant"
}

// ConversationTurn is a single immutable message in a session.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRecord is the on-disk shape of a session, one JSON file per session.
type SessionRecord struct {
	SessionID   string             `json:"session_id"`
	Turns       []ConversationTurn `json:"conversation_history"`
	LastUpdated time.Time          `json:"last_updated"`
}

// ConversationExport is the full history plus summary returned by export.
type ConversationExport struct {
	SessionID  string             `json:"session_id"`
	Turns      []ConversationTurn `json:"conversation_history"`
	Summary    string             `json:"summary"`
	ExportedAt time.Time          `json:"exported_at"`
}

// Document is an extracted source document before chunking.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// DocumentChunk is the unit of embedding and retrieval. ChunkID is derived
// from a hash of the content, so identical content maps to the same id.
type DocumentChunk struct {
	ChunkID  string            `json:"chunk_id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	AddedAt  time.Time         `json:"added_at"`
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float32       `json:"score"`
}

// MemoryStats reports index sizes, excluding the initialization placeholder.
type MemoryStats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
}

// DocumentInfo is the listing shape for stored chunks.
type DocumentInfo struct {
	ChunkID        string            `json:"chunk_id"`
	Metadata       map[string]string `json:"metadata"`
	ContentPreview string            `json:"content_preview"`
	AddedAt        time.Time         `json:"added_at"`
}
