package rag

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// fingerprintLen is how many normalized runes identify near-identical chunk
// text. Web mirrors of the same article rarely diverge within the first
// sentence or two.
const fingerprintLen = 120

// Context is the assembled evidence handed to the generator.
type Context struct {
	Chunks      []knowledge.Result
	UsedDynamic bool
	Truncated   bool
}

// Assembler merges local and dynamic retrieval results into a deduplicated,
// similarity-ranked context bounded by a character budget.
type Assembler struct {
	budget int
	logger *slog.Logger
}

// NewAssembler creates an Assembler with the given context budget in
// characters.
func NewAssembler(budget int, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{budget: budget, logger: logger}
}

// Assemble ranks all results by similarity descending, drops duplicates
// keeping the higher-scored copy, and truncates at whole-chunk boundaries so
// the total text stays within the budget.
func (a *Assembler) Assemble(local, dynamic []knowledge.Result) *Context {
	merged := make([]knowledge.Result, 0, len(local)+len(dynamic))
	merged = append(merged, local...)
	merged = append(merged, dynamic...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	assembled := &Context{}
	used := 0
	seen := make(map[string]bool, len(merged))
	var kept []knowledge.Result

	for _, candidate := range merged {
		if isDuplicate(candidate, kept, seen) {
			continue
		}

		size := len([]rune(candidate.Chunk.Text))
		if used+size > a.budget {
			// Insertion stops at the first chunk that does not fit whole.
			assembled.Truncated = true
			break
		}

		kept = append(kept, candidate)
		seen[fingerprint(candidate.Chunk.Text)] = true
		used += size
		if candidate.Origin == knowledge.OriginDynamic {
			assembled.UsedDynamic = true
		}
	}

	assembled.Chunks = kept
	a.logger.Debug("context assembled",
		"candidates", len(merged),
		"kept", len(kept),
		"chars", used,
		"used_dynamic", assembled.UsedDynamic,
		"truncated", assembled.Truncated)
	return assembled
}

// isDuplicate reports whether candidate repeats an already-kept result:
// either the same document with an overlapping span, or near-identical text.
// Candidates arrive in descending similarity order, so the kept copy always
// scores at least as high.
func isDuplicate(candidate knowledge.Result, kept []knowledge.Result, seen map[string]bool) bool {
	if seen[fingerprint(candidate.Chunk.Text)] {
		return true
	}
	for _, k := range kept {
		if k.Chunk.DocumentID != candidate.Chunk.DocumentID {
			continue
		}
		if candidate.Chunk.Start < k.Chunk.End && k.Chunk.Start < candidate.Chunk.End {
			return true
		}
	}
	return false
}

// fingerprint normalizes chunk text to a short prefix key: lowercase with
// whitespace runs collapsed, cut at fingerprintLen runes.
func fingerprint(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(normalized)
	if len(runes) > fingerprintLen {
		runes = runes[:fingerprintLen]
	}
	return string(runes)
}
