package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressTextRoundTrip(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)

	compressed, algorithm, err := CompressText(text)
	require.NoError(t, err)
	assert.Equal(t, CompressionGzip, algorithm)
	assert.Less(t, len(compressed), len(text))

	restored, err := DecompressText(compressed, algorithm)
	require.NoError(t, err)
	assert.Equal(t, text, restored)
}

func TestSmallTextSkipsCompression(t *testing.T) {
	compressed, algorithm, err := CompressText("short")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algorithm)
	assert.Equal(t, []byte("short"), compressed)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := CompressData([]byte("data"), CompressionAlgorithm("zstd"))
	assert.Error(t, err)
}

func TestChunkIDDeterministic(t *testing.T) {
	first := ChunkID("identical content")
	second := ChunkID("identical content")
	other := ChunkID("different content")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Regexp(t, `^doc_[0-9a-f]{8}$`, first)
}
