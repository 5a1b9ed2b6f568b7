package routes

import (
	"net/http"
	"strings"
	"time"

	"cs-instructor-backend/models"
	"cs-instructor-backend/utils"

	"github.com/gin-gonic/gin"
)

// Query answers one student message. The agent degrades internally, so this
// handler only fails on malformed input.
func (h *Handlers) Query(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "message is required", gin.H{"error": err.Error()})
		return
	}

	instructor, sessionID := h.registry.GetOrCreate(req.SessionID)

	answer, steps := instructor.Query(c.Request.Context(), req.Message)

	if h.metrics != nil {
		for _, step := range steps {
			failed := strings.HasPrefix(step.Observation, "Unknown tool")
			h.metrics.RecordToolInvocation(step.Action, !failed)
			if step.Action == "execute_code" {
				h.metrics.RecordSandboxExecution(sandboxResultKind(step.Observation))
			}
		}
	}

	c.JSON(http.StatusOK, models.QueryResponse{
		Response:            answer,
		Success:             true,
		SessionID:           sessionID,
		IntermediateSteps:   steps,
		ConversationSummary: instructor.Conversation().Summary(),
	})
}

func sandboxResultKind(observation string) string {
	switch {
	case strings.HasPrefix(observation, "Syntax Error:"):
		return "syntax_error"
	case strings.HasPrefix(observation, "Security Error:"):
		return "security_error"
	case strings.HasPrefix(observation, "Runtime Error:"):
		return "runtime_error"
	default:
		return "ok"
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	})
}
