package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases and splits",
			input: "Hello World",
			want:  []string{"hello", "world"},
		},
		{
			name:  "strips punctuation",
			input: "it's a test, isn't it?",
			want:  []string{"its", "a", "test", "isnt", "it"},
		},
		{
			name:  "keeps digits",
			input: "version 2 of chapter 10",
			want:  []string{"version", "2", "of", "chapter", "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}

	assert.Empty(t, Tokenize("  ...  "))
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeScore(0))

	// Monotonic and bounded in (0, 1).
	prev := 0.0
	for _, raw := range []float64{0.5, 1, 5, 10, 100, 1000} {
		score := NormalizeScore(raw)
		assert.Greater(t, score, prev)
		assert.Less(t, score, 1.0)
		prev = score
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex(nil, nil)
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Search("anything", 10))
}

func TestSearchRanksExactTermHigher(t *testing.T) {
	ids := []string{"c1", "c2", "c3"}
	texts := []string{
		"the cat sat on the mat",
		"dogs chase cats around the yard",
		"a treatise on maritime law",
	}
	idx := NewIndex(ids, texts)
	require.Equal(t, 3, idx.Len())

	hits := idx.Search("cat", 10)
	require.Len(t, hits, 1, "only the exact term matches, stemming is not applied")
	assert.Equal(t, "c1", hits[0].ID)
	assert.Greater(t, hits[0].Raw, 0.0)
	assert.Equal(t, NormalizeScore(hits[0].Raw), hits[0].Score)
}

func TestSearchExcludesNonMatching(t *testing.T) {
	idx := NewIndex(
		[]string{"c1", "c2"},
		[]string{"alpha beta gamma", "delta epsilon zeta"},
	)

	hits := idx.Search("alpha", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)
}

func TestSearchOrdersByScore(t *testing.T) {
	// c1 mentions the term twice, c2 once in a longer document.
	idx := NewIndex(
		[]string{"c1", "c2"},
		[]string{
			"kubernetes cluster kubernetes setup",
			"a very long document about many things including kubernetes somewhere in the middle of it all",
		},
	)

	hits := idx.Search("kubernetes", 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ID)
	assert.Greater(t, hits[0].Raw, hits[1].Raw)
}

func TestSearchRespectsLimit(t *testing.T) {
	ids := []string{"c1", "c2", "c3", "c4"}
	texts := []string{
		"shared term one", "shared term two", "shared term three", "shared term four",
	}
	idx := NewIndex(ids, texts)

	hits := idx.Search("shared", 2)
	assert.Len(t, hits, 2)

	assert.Nil(t, idx.Search("shared", 0))
}

func TestSearchMultiTermQuery(t *testing.T) {
	idx := NewIndex(
		[]string{"c1", "c2", "c3"},
		[]string{
			"grilled cheese sandwich recipe",
			"cheese varieties of france",
			"sandwich shop opening hours",
		},
	)

	hits := idx.Search("cheese sandwich", 10)
	require.Len(t, hits, 3)
	// The chunk matching both terms outranks single-term matches.
	assert.Equal(t, "c1", hits[0].ID)
}

func TestIDFNonNegative(t *testing.T) {
	// A term present in every document must not produce a negative score
	// under the non-negative IDF variant.
	idx := NewIndex(
		[]string{"c1", "c2", "c3"},
		[]string{"common word here", "common word there", "common word everywhere"},
	)

	hits := idx.Search("common", 10)
	require.Len(t, hits, 3)
	for _, hit := range hits {
		assert.Greater(t, hit.Raw, 0.0)
	}
}
