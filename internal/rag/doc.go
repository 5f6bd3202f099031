// Package rag implements the retrieval-augmented answer pipeline.
//
// A question flows through four stages:
//
//	Retriever  -- embed the question, query the persisted index, decide
//	              whether local knowledge is sufficient
//	Fallback   -- on an insufficient decision, run a web search and turn
//	              fetched pages into ephemeral entries for this query only
//	Assembler  -- merge, dedupe and rank local and dynamic results under
//	              the context budget
//	Generator  -- build the prompt and produce the answer with provenance
//
// System wires the stages together; Indexer is the offline counterpart
// that feeds collected documents into the persisted index.
package rag
