package models

import "time"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Message   string `json:"message" binding:"required,min=1,max=8000"`
	SessionID string `json:"session_id,omitempty"`
}

// ToolStep records one tool invocation made while answering a query.
type ToolStep struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Observation string `json:"observation"`
}

// QueryResponse is the agent's answer plus its tool-invocation trace.
type QueryResponse struct {
	Response            string     `json:"response"`
	Success             bool       `json:"success"`
	SessionID           string     `json:"session_id"`
	IntermediateSteps   []ToolStep `json:"intermediate_steps"`
	ConversationSummary string     `json:"conversation_summary"`
	Error               string     `json:"error,omitempty"`
}

// FileInfo describes an uploaded file.
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	MimeType  string `json:"mime_type"`
	Extension string `json:"extension"`
	IsAllowed bool   `json:"is_allowed"`
}

// UploadResponse is the body of a successful POST /upload.
type UploadResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	FileInfo       FileInfo `json:"file_info"`
	DocumentsAdded int      `json:"documents_added"`
	SessionID      string   `json:"session_id"`
}

// ClearMemoryRequest is the body of POST /memory/clear.
type ClearMemoryRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Type      string `json:"type,omitempty"` // "conversation" (default) or "semantic"
}

// SessionInfo summarizes one active session for GET /sessions.
type SessionInfo struct {
	SessionID           string      `json:"session_id"`
	ConversationSummary string      `json:"conversation_summary"`
	SemanticMemoryStats MemoryStats `json:"semantic_memory_stats"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
