// Package keyword provides an in-memory BM25 index over the chunk corpus.
package keyword

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Okapi BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// normalizeK maps unbounded raw BM25 scores into (0, 1) while preserving
// rank order, so they can be fused with bounded similarity scores.
const normalizeK = 0.1

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Tokenize lowercases, strips non-alphanumeric characters and splits on
// whitespace. Query and corpus must be tokenized identically for BM25
// term statistics to line up.
func Tokenize(text string) []string {
	text = nonAlnumRe.ReplaceAllString(text, "")
	return strings.Fields(strings.ToLower(text))
}

// NormalizeScore maps a raw BM25 score into (0, 1).
func NormalizeScore(raw float64) float64 {
	return 1.0 - 1.0/(1.0+raw*normalizeK)
}

// Hit is a keyword retrieval result.
type Hit struct {
	// ID is the matched chunk.
	ID string

	// Raw is the unbounded BM25 score.
	Raw float64

	// Score is the normalised score in (0, 1).
	Score float64
}

// Index holds tokenized corpus statistics for BM25 scoring.
// It is immutable once built; rebuild it when the corpus changes.
type Index struct {
	ids      []string
	termFreq []map[string]int
	docLen   []int
	docFreq  map[string]int
	avgLen   float64
}

// NewIndex builds a BM25 index over parallel id/text slices.
func NewIndex(ids, texts []string) *Index {
	idx := &Index{
		ids:      ids,
		termFreq: make([]map[string]int, len(texts)),
		docLen:   make([]int, len(texts)),
		docFreq:  make(map[string]int),
	}

	total := 0
	for i, text := range texts {
		tokens := Tokenize(text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreq[i] = tf
		idx.docLen[i] = len(tokens)
		total += len(tokens)

		for tok := range tf {
			idx.docFreq[tok]++
		}
	}

	if len(texts) > 0 {
		idx.avgLen = float64(total) / float64(len(texts))
	}

	return idx
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Search scores the query against every indexed chunk and returns up to k
// hits ordered best-first. Chunks with a non-positive raw score are
// excluded.
func (idx *Index) Search(query string, k int) []Hit {
	if idx.Len() == 0 || k <= 0 {
		return nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	n := float64(idx.Len())
	hits := make([]Hit, 0, k)

	for i := range idx.ids {
		raw := 0.0
		dl := float64(idx.docLen[i])

		for _, term := range terms {
			tf := float64(idx.termFreq[i][term])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[term])

			// Non-negative IDF variant, as used by Lucene
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			raw += idf * tf * (k1 + 1) / (tf + k1*(1-b+b*dl/idx.avgLen))
		}

		if raw <= 0 {
			continue
		}

		hits = append(hits, Hit{
			ID:    idx.ids[i],
			Raw:   raw,
			Score: NormalizeScore(raw),
		})
	}

	sort.SliceStable(hits, func(a, c int) bool {
		return hits[a].Raw > hits[c].Raw
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits
}
