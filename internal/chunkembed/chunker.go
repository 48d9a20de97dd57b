// Package chunkembed implements the Chunker & Embedder (C4): a token-aware
// recursive splitter generalized from the teacher's document-chunker
// (createSmartChunks/createSlidingWindowChunks/splitByParagraphs), and a
// batched, cache-first embedder generalized from embedding_service.go plus
// cognitive-microservice.go's SHA-256 content-addressed cache.
package chunkembed

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// separatorHierarchy is tried in order, coarsest first, matching §4.4.
var separatorHierarchy = []string{"\n\n", "\n", ". ", ", ", " "}

// TokenCounter measures text length the way the embedding model tokenizer
// would, not by character count.
type TokenCounter interface {
	Count(text string) int
}

// tiktokenCounter wraps a real tiktoken-go encoding.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for model, falling back to
// cl100k_base (the encoding backing the ada/gpt-4 family) when the model is
// unrecognized.
func NewTiktokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (t *tiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Chunk is one ordered slice of a document's text.
type Chunk struct {
	Text  string
	Index int
}

// Chunker splits text into token-bounded, overlapping chunks.
type Chunker struct {
	counter       TokenCounter
	maxTokens     int
	overlapTokens int
}

// NewChunker builds a Chunker. maxTokens/overlapTokens come from
// CHUNK_MAX_TOKENS/CHUNK_OVERLAP_TOKENS.
func NewChunker(counter TokenCounter, maxTokens, overlapTokens int) *Chunker {
	return &Chunker{counter: counter, maxTokens: maxTokens, overlapTokens: overlapTokens}
}

// Split recursively splits text along the separator hierarchy and merges the
// resulting pieces into chunks no larger than maxTokens, carrying up to
// overlapTokens of trailing context into the next chunk. Empty input yields
// a nil slice without error.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.recursiveSplit(text, separatorHierarchy)
	merged := c.mergeSplits(pieces)

	out := make([]Chunk, len(merged))
	for i, t := range merged {
		out[i] = Chunk{Text: t, Index: i}
	}
	return out
}

// recursiveSplit breaks text into pieces each at or below maxTokens,
// descending the separator hierarchy and finally falling back to a hard
// character split when no separator helps.
func (c *Chunker) recursiveSplit(text string, seps []string) []string {
	if c.counter.Count(text) <= c.maxTokens {
		return []string{text}
	}
	if len(seps) == 0 {
		return c.splitByChars(text)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)
	if len(parts) <= 1 {
		return c.recursiveSplit(text, seps[1:])
	}

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if c.counter.Count(p) > c.maxTokens {
			out = append(out, c.recursiveSplit(p, seps[1:])...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitByChars is the last-resort separator: each cut starts at maxTokens
// worth of characters (about four characters per token) and shrinks one
// rune at a time until it counts at most maxTokens tokens (a crude but
// deterministic split when no textual separator applies).
func (c *Chunker) splitByChars(text string) []string {
	runes := []rune(text)
	approxCharsPerToken := 4
	step := c.maxTokens * approxCharsPerToken
	if step < 1 {
		step = 1
	}

	var out []string
	for start := 0; start < len(runes); {
		end := start + step
		if end > len(runes) {
			end = len(runes)
		}
		for end-start > 1 && c.counter.Count(string(runes[start:end])) > c.maxTokens {
			end--
		}
		out = append(out, string(runes[start:end]))
		start = end
	}
	return out
}

// mergeSplits greedily packs pieces into chunks up to maxTokens, carrying
// trailing pieces worth up to overlapTokens into the start of the next
// chunk. When the carried overlap leaves no room for the next piece, the
// overlap is dropped; a piece that never fit on its own is first cut by
// splitByChars. No chunk exceeds maxTokens.
func (c *Chunker) mergeSplits(pieces []string) []string {
	if len(pieces) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	appendPiece := func(p string, pt int) {
		if currentTokens+pt > c.maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			current, currentTokens = c.carryOverlap(current)
		}
		// The carried overlap alone may already leave no room for p;
		// drop it rather than exceed maxTokens.
		if currentTokens+pt > c.maxTokens && len(current) > 0 {
			current, currentTokens = nil, 0
		}
		current = append(current, p)
		currentTokens += pt
	}

	for _, p := range pieces {
		pt := c.counter.Count(p)
		if pt > c.maxTokens {
			for _, sub := range c.splitByChars(p) {
				appendPiece(sub, c.counter.Count(sub))
			}
			continue
		}
		appendPiece(p, pt)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// carryOverlap keeps the trailing pieces of the just-closed chunk whose
// combined token count is at most overlapTokens.
func (c *Chunker) carryOverlap(pieces []string) ([]string, int) {
	if c.overlapTokens <= 0 {
		return nil, 0
	}

	var kept []string
	tokens := 0
	for i := len(pieces) - 1; i >= 0; i-- {
		pt := c.counter.Count(pieces[i])
		if tokens+pt > c.overlapTokens {
			break
		}
		kept = append([]string{pieces[i]}, kept...)
		tokens += pt
	}
	return kept, tokens
}
