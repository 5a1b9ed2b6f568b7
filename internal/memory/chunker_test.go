package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	chunker := NewChunker(1000, 200, 100)

	chunks := chunker.Split("A short note about slices.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short note about slices.", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	chunker := NewChunker(1000, 200, 100)

	assert.Empty(t, chunker.Split(""))
	assert.Empty(t, chunker.Split("  \n\n  "))
}

func TestSplitRespectsChunkSize(t *testing.T) {
	chunker := NewChunker(200, 40, 20)

	paragraphs := make([]string, 8)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("All work and no play. ", 4)
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// Overlap seeding can push a chunk slightly past the cap, never by
		// more than one paragraph plus the overlap.
		assert.LessOrEqual(t, len(chunk), 200+40+len(paragraphs[0]))
	}
}

func TestSplitOversizedParagraphUsesWindows(t *testing.T) {
	chunker := NewChunker(100, 20, 10)

	text := strings.Repeat("x", 350)
	chunks := chunker.Split(text)

	require.Greater(t, len(chunks), 3)
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.Len(t, chunk, 100, "chunk %d", i)
	}

	// Windows advance by size minus overlap, so neighbors share text.
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
}

func TestOverlapTailKeepsOriginalPunctuation(t *testing.T) {
	chunker := NewChunker(200, 40, 20)

	text := strings.Repeat("a", 170) + " Really? Yes! Done."
	tail := chunker.overlapTail(text)

	assert.Equal(t, "Yes! Done.", tail)
}

func TestOverlapTailShortTextUnchanged(t *testing.T) {
	chunker := NewChunker(200, 40, 20)

	assert.Equal(t, "Tiny note.", chunker.overlapTail("Tiny note."))
}

func TestSplitCoversAllContent(t *testing.T) {
	chunker := NewChunker(150, 30, 15)

	text := "First paragraph about maps.\n\nSecond paragraph about channels.\n\nThird paragraph about goroutines and the scheduler behavior under load.\n\nFourth paragraph about interfaces."
	chunks := chunker.Split(text)

	joined := strings.Join(chunks, "\n")
	for _, phrase := range []string{"maps", "channels", "goroutines", "interfaces"} {
		assert.Contains(t, joined, phrase)
	}
}
