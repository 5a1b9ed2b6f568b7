package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	embedder := NewHashEmbedder(64)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "binary search")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "binary search")
	require.NoError(t, err)
	other, err := embedder.Embed(ctx, "bubble sort")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}

func TestHashEmbedderNormalized(t *testing.T) {
	embedder := NewHashEmbedder(384)

	vec, err := embedder.Embed(context.Background(), "some text")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 0.001)
}

func TestHashEmbedderDefaultDimensions(t *testing.T) {
	embedder := NewHashEmbedder(0)
	vec, err := embedder.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}

func TestFallbackEmbedderUsesHashWhenPrimaryFails(t *testing.T) {
	embedder := NewFallbackEmbedder(failingEmbedder{}, 64, nil)

	vec, err := embedder.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.True(t, embedder.Available(context.Background()))
	assert.Equal(t, "failing+hash", embedder.Name())
}

func TestFallbackEmbedderPinsDimensionAcrossOutage(t *testing.T) {
	primary := &flakyEmbedder{inner: NewHashEmbedder(16), failAfter: 1}
	embedder := NewFallbackEmbedder(primary, 64, nil)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "stored while the provider was up")
	require.NoError(t, err)
	require.Len(t, first, 16)

	// The primary is down now; the fallback must keep the pinned dimension
	// instead of its configured one.
	second, err := embedder.Embed(ctx, "queried during the outage")
	require.NoError(t, err)
	assert.Len(t, second, 16)
}

func TestFallbackEmbedderRejectsDimensionDrift(t *testing.T) {
	primary := &driftingEmbedder{}
	embedder := NewFallbackEmbedder(primary, 64, nil)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "a")
	require.NoError(t, err)
	require.Len(t, first, 16)

	_, err = embedder.Embed(ctx, "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestFallbackEmbedderRecordsCalls(t *testing.T) {
	recorder := &recordingSink{}
	embedder := NewFallbackEmbedder(failingEmbedder{}, 64, recorder)

	_, err := embedder.Embed(context.Background(), "anything")
	require.NoError(t, err)

	require.Len(t, recorder.events, 2)
	assert.Equal(t, embeddingEvent{provider: "failing", success: false}, recorder.events[0])
	assert.Equal(t, embeddingEvent{provider: "hash", success: true}, recorder.events[1])
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, assert.AnError
}
func (failingEmbedder) Available(context.Context) bool { return false }
func (failingEmbedder) Name() string                   { return "failing" }

// flakyEmbedder serves a fixed number of calls, then fails every call after.
type flakyEmbedder struct {
	inner     Embedder
	failAfter int
	calls     int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls > f.failAfter {
		return nil, assert.AnError
	}
	return f.inner.Embed(ctx, text)
}
func (f *flakyEmbedder) Available(context.Context) bool { return true }
func (f *flakyEmbedder) Name() string                   { return "flaky" }

// driftingEmbedder grows its vector on every call.
type driftingEmbedder struct{ calls int }

func (d *driftingEmbedder) Embed(context.Context, string) ([]float32, error) {
	d.calls++
	return make([]float32, 16*d.calls), nil
}
func (d *driftingEmbedder) Available(context.Context) bool { return true }
func (d *driftingEmbedder) Name() string                   { return "drifting" }

type embeddingEvent struct {
	provider string
	success  bool
}

type recordingSink struct{ events []embeddingEvent }

func (r *recordingSink) RecordEmbeddingCall(provider string, success bool) {
	r.events = append(r.events, embeddingEvent{provider: provider, success: success})
}
