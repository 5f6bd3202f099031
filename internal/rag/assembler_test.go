package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

func TestAssembleRanksAcrossOrigins(t *testing.T) {
	local := []knowledge.Result{
		result("doc-a", "local evidence about Go salaries", 0, 100, 0.55, knowledge.OriginLocal),
	}
	dynamic := []knowledge.Result{
		result("doc-b", "fresh web evidence about Go salaries in 2026", 0, 100, 0.90, knowledge.OriginDynamic),
	}

	ctx := NewAssembler(4000, nil).Assemble(local, dynamic)

	assert.Len(t, ctx.Chunks, 2)
	assert.Equal(t, knowledge.OriginDynamic, ctx.Chunks[0].Origin, "higher-scored dynamic result must rank first")
	assert.True(t, ctx.UsedDynamic)
	assert.False(t, ctx.Truncated)
}

func TestAssembleLocalOnly(t *testing.T) {
	local := []knowledge.Result{
		result("doc-a", "local evidence", 0, 100, 0.8, knowledge.OriginLocal),
	}

	ctx := NewAssembler(4000, nil).Assemble(local, nil)

	assert.False(t, ctx.UsedDynamic)
	assert.Len(t, ctx.Chunks, 1)
}

func TestAssembleDedupesOverlappingSpans(t *testing.T) {
	// Same document, overlapping spans: keep the higher-scored chunk.
	local := []knowledge.Result{
		result("doc-a", "chunk covering the first span of the article", 0, 200, 0.70, knowledge.OriginLocal),
		result("doc-a", "chunk covering an overlapping span of text", 150, 350, 0.85, knowledge.OriginLocal),
		result("doc-a", "chunk covering a disjoint later span entirely", 400, 600, 0.60, knowledge.OriginLocal),
	}

	ctx := NewAssembler(4000, nil).Assemble(local, nil)

	assert.Len(t, ctx.Chunks, 2)
	assert.Equal(t, 0.85, ctx.Chunks[0].Similarity)
	assert.Equal(t, 0.60, ctx.Chunks[1].Similarity)
}

func TestAssembleDedupesNearIdenticalText(t *testing.T) {
	// Same article mirrored on two sites: different documents, same words.
	text := "Negotiating a senior offer starts with knowing the band for your level and region before the first call."
	local := []knowledge.Result{
		result("doc-a", text, 0, 110, 0.75, knowledge.OriginLocal),
	}
	dynamic := []knowledge.Result{
		result("doc-mirror", "  negotiating a SENIOR offer starts with knowing the band for your level and region before the first call. ", 0, 115, 0.80, knowledge.OriginDynamic),
	}

	ctx := NewAssembler(4000, nil).Assemble(local, dynamic)

	assert.Len(t, ctx.Chunks, 1)
	assert.Equal(t, 0.80, ctx.Chunks[0].Similarity, "higher-scored copy survives")
}

func TestAssembleBudget(t *testing.T) {
	// Each chunk is 40 distinct runes; a 100-rune budget fits two whole
	// chunks.
	mk := func(doc, text string, score float64) knowledge.Result {
		if got := len([]rune(text)); got != 40 {
			t.Fatalf("fixture %q is %d runes, want 40", text, got)
		}
		return result(doc, text, 0, 40, score, knowledge.OriginLocal)
	}
	local := []knowledge.Result{
		mk("doc-1", "salary bands for engineers at level four", 0.9),
		mk("doc-2", "interview loops at four backend startups", 0.8),
		mk("doc-3", "resume reviews for senior cloud managers", 0.7),
	}

	ctx := NewAssembler(100, nil).Assemble(local, nil)

	assert.Len(t, ctx.Chunks, 2)
	assert.True(t, ctx.Truncated)

	total := 0
	for _, res := range ctx.Chunks {
		total += len([]rune(res.Chunk.Text))
	}
	assert.LessOrEqual(t, total, 100)
}

func TestAssembleEmpty(t *testing.T) {
	ctx := NewAssembler(4000, nil).Assemble(nil, nil)

	assert.Empty(t, ctx.Chunks)
	assert.False(t, ctx.UsedDynamic)
	assert.False(t, ctx.Truncated)
}

func TestFingerprint(t *testing.T) {
	a := fingerprint("Hello   World\nfoo")
	b := fingerprint("hello world foo")
	assert.Equal(t, a, b)

	long := fingerprint(strings.Repeat("x", 300))
	assert.Len(t, []rune(long), fingerprintLen)
}
