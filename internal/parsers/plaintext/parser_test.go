package plaintext

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePassesThroughValidUTF8(t *testing.T) {
	input := "plain text with unicode: héllo wörld"

	got, err := New().Parse(context.Background(), []byte(input), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestParseReplacesInvalidUTF8(t *testing.T) {
	input := []byte{'o', 'k', ' ', 0xff, 0xfe, ' ', 'e', 'n', 'd'}

	got, err := New().Parse(context.Background(), input, "dirty.log")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "ok")
	assert.Contains(t, got, "end")
}

func TestSupportedExtensions(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{".txt", ".text", ".log", ".csv"},
		New().SupportedExtensions())
}
