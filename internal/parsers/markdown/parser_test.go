package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStripsFormatting(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "headings",
			input: "# Title\n\n## Section\n\nBody text.",
			want:  "Title\n\nSection\n\nBody text.",
		},
		{
			name:  "links keep text",
			input: "See [the docs](https://example.com/docs) for details.",
			want:  "See the docs for details.",
		},
		{
			name:  "images removed",
			input: "Before ![alt text](img.png) after.",
			want:  "Before  after.",
		},
		{
			name:  "bold and italic markers",
			input: "This is **bold** and *italic* text.",
			want:  "This is bold and italic text.",
		},
		{
			name:  "inline code removed",
			input: "Run `make build` to compile.",
			want:  "Run  to compile.",
		},
		{
			name:  "list markers",
			input: "- first\n- second\n1. third",
			want:  "first\nsecond\nthird",
		},
		{
			name:  "blockquotes",
			input: "> quoted line\nnormal line",
			want:  "quoted line\nnormal line",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(context.Background(), []byte(tt.input), "doc.md")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRemovesCodeBlocks(t *testing.T) {
	input := "Intro.\n\n```go\nfunc main() {}\n```\n\nOutro."

	got, err := New().Parse(context.Background(), []byte(input), "doc.md")
	require.NoError(t, err)
	assert.NotContains(t, got, "func main")
	assert.Contains(t, got, "Intro.")
	assert.Contains(t, got, "Outro.")
}
