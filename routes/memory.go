package routes

import (
	"net/http"

	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/models"
	"cs-instructor-backend/utils"

	"github.com/gin-gonic/gin"
)

// MemoryStats reports the session's conversation summary plus the shared
// index stats.
func (h *Handlers) MemoryStats(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.RespondWithBadRequest(c, "session_id is required", nil)
		return
	}

	summary := h.sessionSummary(sessionID)

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"session_id":            sessionID,
		"conversation_summary":  summary,
		"semantic_memory_stats": h.semantic.Stats(),
	})
}

// ClearMemory resets conversation history or the shared document index.
func (h *Handlers) ClearMemory(c *gin.Context) {
	var req models.ClearMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "session_id is required", gin.H{"error": err.Error()})
		return
	}

	switch req.Type {
	case "", "conversation":
		instructor, _ := h.registry.GetOrCreate(req.SessionID)
		instructor.Conversation().Clear()
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Conversation memory cleared"})

	case "semantic":
		if err := h.semantic.Clear(c.Request.Context()); err != nil {
			utils.RespondWithInternalError(c, "could not clear semantic memory", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Semantic memory cleared"})

	default:
		utils.RespondWithBadRequest(c, "type must be 'conversation' or 'semantic'", nil)
	}
}

// ListDocuments lists everything stored in the knowledge base.
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.semantic.ListDocuments()
	if err != nil {
		utils.RespondWithInternalError(c, "could not list documents", gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"documents": docs,
		"count":     len(docs),
	})
}

// ExportConversation returns a session's full history with its summary.
// Unknown sessions are a 404 rather than an empty export.
func (h *Handlers) ExportConversation(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.RespondWithBadRequest(c, "session_id is required", nil)
		return
	}

	if instructor, ok := h.registry.Get(sessionID); ok {
		c.JSON(http.StatusOK, instructor.Conversation().Export())
		return
	}

	record, err := h.sessions.Load(sessionID)
	if err != nil {
		utils.RespondWithInternalError(c, "could not load session", gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		utils.RespondWithNotFound(c, "session "+sessionID+" not found")
		return
	}
	c.JSON(http.StatusOK, memory.NewConversationStore(sessionID, h.sessions).Export())
}

// ListSessions lists persisted sessions with their summaries. The index
// stats are shared, so every entry carries the same numbers.
func (h *Handlers) ListSessions(c *gin.Context) {
	ids, err := h.sessions.ListSessions()
	if err != nil {
		utils.RespondWithInternalError(c, "could not list sessions", gin.H{"error": err.Error()})
		return
	}

	stats := h.semantic.Stats()
	infos := make([]models.SessionInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, models.SessionInfo{
			SessionID:           id,
			ConversationSummary: h.sessionSummary(id),
			SemanticMemoryStats: stats,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": infos,
		"count":    len(infos),
	})
}

// sessionSummary reads a session's summary without registering an agent for
// it.
func (h *Handlers) sessionSummary(sessionID string) string {
	if instructor, ok := h.registry.Get(sessionID); ok {
		return instructor.Conversation().Summary()
	}
	return memory.NewConversationStore(sessionID, h.sessions).Summary()
}
