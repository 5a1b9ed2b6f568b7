package memory

import (
	"regexp"
	"strings"
)

// Chunker splits source documents into overlapping windows, the unit of
// embedding and retrieval. Splitting prefers paragraph boundaries and builds
// overlap from whole sentences where it can.
type Chunker struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

func NewChunker(maxChunkSize, overlap, minChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	if minChunkSize <= 0 || minChunkSize > maxChunkSize {
		minChunkSize = maxChunkSize / 10
	}
	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Split chunks text with paragraph boundary awareness. A paragraph longer
// than the chunk size is cut into fixed overlapping windows.
func (c *Chunker) Split(text string) []string {
	paragraphs := filterEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	current := new(strings.Builder)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current = new(strings.Builder)
		}
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)

		if len(paragraph) > c.maxChunkSize {
			flush()
			chunks = append(chunks, c.splitWindows(paragraph)...)
			continue
		}

		if current.Len()+len(paragraph) > c.maxChunkSize && current.Len() >= c.minChunkSize {
			previous := current.String()
			flush()

			// Seed the next chunk with overlap from the previous one.
			if c.overlap > 0 {
				if overlapText := c.overlapTail(previous); overlapText != "" {
					current.WriteString(overlapText)
				}
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}

	flush()
	return chunks
}

// splitWindows cuts oversized text into fixed-size windows with overlap.
func (c *Chunker) splitWindows(text string) []string {
	var chunks []string
	step := c.maxChunkSize - c.overlap
	for start := 0; start < len(text); start += step {
		end := start + c.maxChunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// overlapTail extracts up to overlap characters from the end of text,
// preferring sentence boundaries.
func (c *Chunker) overlapTail(text string) string {
	if len(text) <= c.overlap {
		return text
	}

	tail := text[len(text)-c.overlap:]
	// Drop the leading partial sentence by cutting at the first boundary, so
	// the overlap keeps the source text's own punctuation.
	if loc := c.sentenceRegex.FindStringIndex(tail); loc != nil && loc[1] < len(tail) {
		return tail[loc[1]:]
	}
	return tail
}

// filterEmpty removes empty strings from slice
func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
