// Package chunker splits extracted document text into fixed-size overlapping
// chunks for storage in per-document collections.
package chunker

import "strings"

// Chunker produces rune-based windows of size chars with overlap chars shared
// between neighbors.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive size falls back to 1000, negative
// overlap to 0; overlap is capped below size so the window always advances.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping windows. Blank input yields nil.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
