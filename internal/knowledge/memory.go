package knowledge

import (
	"math"
	"sort"
)

// MemoryIndex holds ephemeral entries for the lifetime of a single query.
// The dynamic search fallback fills it with freshly fetched web chunks and
// queries it with the same contract as the persisted Store; nothing in it is
// ever written back.
//
// A MemoryIndex is scoped to one query and does no locking of its own;
// callers filling it from multiple goroutines serialize their Adds.
type MemoryIndex struct {
	entries []Entry
}

// NewMemoryIndex creates an empty per-query index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends entries, forcing them ephemeral regardless of the caller's
// Persisted flag.
func (m *MemoryIndex) Add(entries ...Entry) {
	for _, entry := range entries {
		entry.Persisted = false
		m.entries = append(m.entries, entry)
	}
}

// Len returns the number of held entries.
func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

// Query returns the k most similar entries by cosine similarity, best first,
// tagged OriginDynamic. Entries whose embedding dimension does not match the
// query are skipped rather than compared meaninglessly.
func (m *MemoryIndex) Query(embedding []float32, k int) []Result {
	if k < 1 || len(m.entries) == 0 {
		return nil
	}

	results := make([]Result, 0, len(m.entries))
	for _, entry := range m.entries {
		if len(entry.Embedding) != len(embedding) {
			continue
		}
		results = append(results, Result{
			Chunk:      entry.Chunk,
			Similarity: CosineSimilarity(embedding, entry.Embedding),
			Origin:     OriginDynamic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// CosineSimilarity computes the cosine similarity between two vectors of the
// same length. Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
