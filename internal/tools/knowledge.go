package tools

import (
	"context"

	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/internal/memory"
)

// KnowledgeBase exposes the document index to the agent as a retrieval tool.
type KnowledgeBase struct {
	semantic  *memory.SemanticMemory
	maxChunks int
}

func NewKnowledgeBase(semantic *memory.SemanticMemory, maxChunks int) *KnowledgeBase {
	if maxChunks <= 0 {
		maxChunks = 3
	}
	return &KnowledgeBase{semantic: semantic, maxChunks: maxChunks}
}

func (t *KnowledgeBase) Name() string { return "search_knowledge_base" }

func (t *KnowledgeBase) Description() string {
	return "Search the uploaded course materials and documents for relevant context. Input: a question or topic."
}

func (t *KnowledgeBase) Run(ctx context.Context, query string) string {
	result, err := t.semantic.ContextFor(ctx, query, t.maxChunks)
	if err != nil {
		logger.Warn("knowledge base lookup failed", "error", err.Error())
		return "The knowledge base is temporarily unavailable."
	}
	return result
}
