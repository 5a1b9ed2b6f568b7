package routes

import (
	"cs-instructor-backend/internal/agent"
	"cs-instructor-backend/internal/config"
	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/internal/telemetry"
	"cs-instructor-backend/services"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the shared services the HTTP surface needs. The registry
// and semantic memory are process-wide; no handler touches package globals.
type Handlers struct {
	cfg       *config.Config
	registry  *agent.Registry
	semantic  *memory.SemanticMemory
	processor *services.FileProcessor
	sessions  *memory.FileSessionStore
	metrics   *telemetry.Metrics
}

func NewHandlers(
	cfg *config.Config,
	registry *agent.Registry,
	semantic *memory.SemanticMemory,
	processor *services.FileProcessor,
	sessions *memory.FileSessionStore,
	metrics *telemetry.Metrics,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		registry:  registry,
		semantic:  semantic,
		processor: processor,
		sessions:  sessions,
		metrics:   metrics,
	}
}

// Register wires every endpoint onto the router.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/query", h.Query)
	r.POST("/upload", h.Upload)

	r.GET("/memory/stats", h.MemoryStats)
	r.POST("/memory/clear", h.ClearMemory)

	r.GET("/documents", h.ListDocuments)
	r.GET("/export/conversation", h.ExportConversation)
	r.GET("/sessions", h.ListSessions)
}
