// Package chunk splits document text into overlapping, deterministically
// identified chunks, the unit of retrieval for the knowledge store.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidConfiguration indicates bad chunk size/overlap parameters.
// Chunking parameters are validated once at construction; a process must not
// run queries with an invalid chunker.
var ErrInvalidConfiguration = errors.New("invalid chunker configuration")

// Chunk is a bounded, overlapping slice of a document's cleaned text.
//
// Start and End are rune offsets into the cleaned document text (half-open
// interval [Start, End)). For a fixed document and parameters the sequence of
// chunks, including IDs, is byte-identical across runs.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Position   int // 0-based index within the document's chunk sequence
	Start      int // inclusive rune offset
	End        int // exclusive rune offset
	Metadata   map[string]string
}

// Span returns the length of the chunk in runes.
func (c Chunk) Span() int {
	return c.End - c.Start
}

// Chunker produces overlapping chunks with a sliding window.
// It is a pure function of its inputs: no state is mutated by Split, so a
// single Chunker is safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. size and overlap are lengths in runes; overlap must
// satisfy 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfiguration, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cleans the given document text and slides a window of the configured
// size across it. Consecutive chunks share exactly the configured overlap
// (except at the final document boundary, where the last chunk may be
// shorter), and the union of all spans covers the cleaned text with no gaps.
//
// metadata is copied into every chunk so each chunk carries its own source
// provenance independent of the document record.
func (c *Chunker) Split(documentID, text string, metadata map[string]string) []Chunk {
	cleaned := Clean(text)
	runes := []rune(cleaned)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)

	for position, start := 0, 0; start < len(runes); position, start = position+1, start+step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			ID:         chunkID(documentID, position),
			DocumentID: documentID,
			Text:       string(runes[start:end]),
			Position:   position,
			Start:      start,
			End:        end,
			Metadata:   copyMetadata(metadata),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// chunkID derives a stable chunk identifier from the document ID and the
// chunk's position. Re-running the pipeline on unchanged input yields the
// same IDs, which makes store upserts idempotent.
func chunkID(documentID string, position int) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s:%d", documentID, position))
	return "chunk_" + hex.EncodeToString(hash[:16])
}

func copyMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
