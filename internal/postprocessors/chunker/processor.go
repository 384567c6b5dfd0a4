// Package chunker provides an overlapping-window text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default chunk size in tokens.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default overlap between chunks in tokens.
const DefaultChunkOverlap = 50

// charsPerToken approximates tokeniser output for English text.
// Exact tokenisation is model-specific; the estimate is good enough for
// character-based windowing.
const charsPerToken = 4

// breakSearchFraction is how far back from the naive window end the
// breakpoint search extends.
const breakSearchFraction = 0.2

var (
	controlRe  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
	spacesRe   = regexp.MustCompile(` {2,}`)

	// Break patterns in priority order: paragraph break, sentence end,
	// clause break, word boundary.
	breakPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\n\n`),
		regexp.MustCompile(`[.!?]\s+`),
		regexp.MustCompile(`[,;:]\s+`),
		regexp.MustCompile(`\s+`),
	}
)

// Processor splits document content into overlapping fixed-size chunks,
// snapping window boundaries to natural breakpoints.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int // tokens
	overlap   int // tokens

	windowChars  int
	overlapChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	p.windowChars = p.chunkSize * charsPerToken
	p.overlapChars = p.overlap * charsPerToken

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size in tokens.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in tokens.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from the
// document content. Offsets refer to the normalised text.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	text := Normalize(doc.Content)
	if text == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	// Whole text fits in one window
	if len(text) <= p.windowChars {
		return []domain.Chunk{p.newChunk(doc.ID, 0, text, 0, len(text))}, nil
	}

	estimated := len(text)/(p.windowChars-p.overlapChars) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	index := 0

	for start < len(text) {
		end := start + p.windowChars
		last := end >= len(text)
		if last {
			end = len(text)
		} else {
			end = p.findBreakPoint(text, start, snapToRuneStart(text, end))
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, p.newChunk(doc.ID, index, content, start, end))
			index++
		}

		if last {
			break
		}

		// Step back from the actual end so adjacent chunks overlap, but
		// always make forward progress even when the overlap would not.
		next := snapToRuneStart(text, end-p.overlapChars)
		if next <= start {
			next = end
		}
		start = next
	}

	logger.Debug("Chunker: %d chunks from %d characters", len(chunks), len(text))

	return chunks, nil
}

func (p *Processor) newChunk(docID string, index int, content string, start, end int) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(docID, index),
		DocumentID: docID,
		Content:    content,
		Index:      index,
		StartChar:  start,
		EndChar:    end,
		TokenCount: EstimateTokens(content),
		Metadata:   make(map[string]any),
	}
}

// findBreakPoint searches backward from the naive end boundary, within the
// last 20% of the window, for a natural break. The first pattern with any
// match wins, and within a pattern the match closest to the target end is
// used. Falls back to the naive boundary.
func (p *Processor) findBreakPoint(text string, start, end int) int {
	searchStart := snapToRuneStart(text, end-int(float64(p.windowChars)*breakSearchFraction))
	if searchStart < start {
		searchStart = start
	}
	window := text[searchStart:end]

	for _, pattern := range breakPatterns {
		matches := pattern.FindAllStringIndex(window, -1)
		if len(matches) > 0 {
			last := matches[len(matches)-1]
			// Break after the separator itself
			return searchStart + last[1]
		}
	}

	return end
}

// snapToRuneStart moves a byte offset left until it lands on a rune
// boundary, so window slicing never cuts a multi-byte character in half.
func snapToRuneStart(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// Normalize cleans text before chunking: control characters are stripped
// (newline and tab survive), 3+ newlines collapse to a paragraph break,
// space runs collapse to one, tabs become spaces, and the ends are trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = controlRe.ReplaceAllString(text, "")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = spacesRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}
