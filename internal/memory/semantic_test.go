package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cs-instructor-backend/internal/ai"
	"cs-instructor-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *SemanticMemory {
	t.Helper()

	semantic, err := NewSemanticMemory(context.Background(), ai.NewHashEmbedder(64), SemanticOptions{
		IndexDir:     t.TempDir(),
		MaxChunkSize: 1000,
		ChunkOverlap: 200,
		MinChunkSize: 100,
	})
	require.NoError(t, err)
	return semantic
}

func docsOf(contents ...string) []models.Document {
	docs := make([]models.Document, 0, len(contents))
	for _, content := range contents {
		docs = append(docs, models.Document{Content: content})
	}
	return docs
}

func TestIngestReturnsDeterministicIDs(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	first, err := semantic.Ingest(ctx, docsOf("Binary search halves the interval each step."), map[string]string{"source": "notes.txt"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Regexp(t, `^doc_[0-9a-f]{8}$`, first[0])

	// Same content again: skipped, same id returned, nothing re-counted.
	second, err := semantic.Ingest(ctx, docsOf("Binary search halves the interval each step."), map[string]string{"source": "other.txt"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats := semantic.Stats()
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestSearchRanksExactMatchFirst(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	query := "Binary search requires a sorted slice."
	_, err := semantic.Ingest(ctx, docsOf(
		query,
		"Bubble sort compares adjacent elements repeatedly.",
		"Goroutines are scheduled by the Go runtime.",
	), map[string]string{"source": "algos.txt"})
	require.NoError(t, err)

	results, err := semantic.Search(ctx, query, 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, query, results[0].Chunk.Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.001)
	for _, result := range results {
		assert.NotEqual(t, placeholderID, result.Chunk.ChunkID)
	}
}

func TestSearchThresholdFilters(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	query := "Channels synchronize goroutines."
	_, err := semantic.Ingest(ctx, docsOf(
		query,
		"A completely different sentence about compilers.",
	), map[string]string{"source": "notes.txt"})
	require.NoError(t, err)

	results, err := semantic.Search(ctx, query, 5, 0.999)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, query, results[0].Chunk.Text)
}

func TestSearchEmptyIndex(t *testing.T) {
	semantic := newTestMemory(t)

	results, err := semantic.Search(context.Background(), "anything", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchByMetadata(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	_, err := semantic.Ingest(ctx, docsOf("Lecture one covers arrays."), map[string]string{"source": "week1.pdf"})
	require.NoError(t, err)
	_, err = semantic.Ingest(ctx, docsOf("Lecture two covers trees."), map[string]string{"source": "week2.pdf"})
	require.NoError(t, err)

	matches, err := semantic.SearchByMetadata(map[string]string{"source": "week2.pdf"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Lecture two covers trees.", matches[0].Text)

	none, err := semantic.SearchByMetadata(map[string]string{"source": "week3.pdf"}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContextForFormatsBlocks(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	empty, err := semantic.ContextFor(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, "No relevant context found in semantic memory.", empty)

	_, err = semantic.Ingest(ctx, docsOf("Maps are unordered in Go."), map[string]string{"source": "faq.md"})
	require.NoError(t, err)

	rendered, err := semantic.ContextFor(ctx, "Maps are unordered in Go.", 3)
	require.NoError(t, err)
	assert.Contains(t, rendered, "**Context 1** (from faq.md):")
	assert.Contains(t, rendered, "Maps are unordered in Go.")
}

func TestDeleteAndCompact(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	ids, err := semantic.Ingest(ctx, docsOf("Something to forget."), map[string]string{"source": "tmp.txt"})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	deleted, err := semantic.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, deleted)

	// Unknown ids report false without error.
	deleted, err = semantic.Delete(ctx, "doc_00000000")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, semantic.Compact(ctx))

	stats := semantic.Stats()
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 0, stats.TotalChunks)
}

func TestClearReseedsPlaceholder(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	_, err := semantic.Ingest(ctx, docsOf("Transient content."), map[string]string{"source": "tmp.txt"})
	require.NoError(t, err)

	require.NoError(t, semantic.Clear(ctx))

	stats := semantic.Stats()
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 0, stats.TotalChunks)

	// The index stays queryable after clearing.
	results, err := semantic.Search(ctx, "anything", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListDocumentsPreviews(t *testing.T) {
	semantic := newTestMemory(t)
	ctx := context.Background()

	long := "Interfaces in Go are satisfied implicitly, which keeps packages decoupled from their consumers and makes substituting fakes in tests straightforward without any declaration ceremony."
	_, err := semantic.Ingest(ctx, docsOf(long), map[string]string{"source": "notes.md"})
	require.NoError(t, err)

	infos, err := semantic.ListDocuments()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, long[:100]+"...", infos[0].ContentPreview)
	assert.Equal(t, "notes.md", infos[0].Metadata["source"])
}

func TestMetadataPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	embedder := ai.NewHashEmbedder(64)

	first, err := NewSemanticMemory(ctx, embedder, SemanticOptions{IndexDir: dir})
	require.NoError(t, err)

	ids, err := first.Ingest(ctx, docsOf("Persistent knowledge."), map[string]string{"source": "keep.txt"})
	require.NoError(t, err)

	if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatalf("metadata artifact missing: %v", err)
	}

	second, err := NewSemanticMemory(ctx, embedder, SemanticOptions{IndexDir: dir})
	require.NoError(t, err)

	stats := second.Stats()
	assert.Equal(t, 1, stats.TotalDocuments)

	matches, err := second.SearchByMetadata(map[string]string{"source": "keep.txt"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ids[0], matches[0].ChunkID)
	assert.Equal(t, "Persistent knowledge.", matches[0].Text)
	assert.Regexp(t, `^[0-9a-f]{64}$`, matches[0].Metadata["content_hash"])
}

// outageEmbedder serves a fixed number of calls, then fails every call after,
// like a provider that goes down mid-life.
type outageEmbedder struct {
	inner     ai.Embedder
	failAfter int
	calls     int
}

func (o *outageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	o.calls++
	if o.calls > o.failAfter {
		return nil, assert.AnError
	}
	return o.inner.Embed(ctx, text)
}
func (o *outageEmbedder) Available(context.Context) bool { return true }
func (o *outageEmbedder) Name() string                   { return "outage" }

func TestSearchSurvivesEmbedderOutage(t *testing.T) {
	ctx := context.Background()

	// The primary serves the placeholder seed and one ingest, then goes
	// down. Its dimension differs from the fallback's configured one, so a
	// per-call fallback would store or query mismatched vectors.
	primary := &outageEmbedder{inner: ai.NewHashEmbedder(16), failAfter: 2}
	embedder := ai.NewFallbackEmbedder(primary, 64, nil)

	semantic, err := NewSemanticMemory(ctx, embedder, SemanticOptions{IndexDir: t.TempDir()})
	require.NoError(t, err)

	query := "Binary search halves the interval each step."
	ids, err := semantic.Ingest(ctx, docsOf(query), map[string]string{"source": "notes.txt"})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	results, err := semantic.Search(ctx, query, 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, ids[0], results[0].Chunk.ChunkID)
}
