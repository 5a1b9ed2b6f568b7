package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackSearchTopics(t *testing.T) {
	fallback := NewFallbackSearch()
	ctx := context.Background()

	assert.Contains(t, fallback.Run(ctx, "what is big o complexity"), "Algorithm complexity")
	assert.Contains(t, fallback.Run(ctx, "tell me about go"), "goroutines and channels")
	assert.Contains(t, fallback.Run(ctx, "javascript basics"), "JavaScript")
	assert.Contains(t, fallback.Run(ctx, "quantum chromodynamics"), "No offline summary available")
}

func TestWebSearchWithoutKeyUsesFallback(t *testing.T) {
	search := NewWebSearch("")
	out := search.Run(context.Background(), "sorting algorithm")
	assert.Contains(t, out, "Algorithm complexity")
}

func TestHasWord(t *testing.T) {
	assert.True(t, hasWord("learn go today", "go"))
	assert.True(t, hasWord("what is go?", "go"))
	assert.False(t, hasWord("algorithm design", "go"))
	assert.False(t, hasWord("golang", "go"))
}
