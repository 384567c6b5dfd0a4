// Package plaintext parses plain text documents.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles plain text documents.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// SupportedExtensions returns the extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv"}
}

// Type returns the document type this parser produces.
func (p *Parser) Type() domain.DocumentType {
	return domain.DocumentTypeText
}

// Parse converts raw bytes to text. Invalid UTF-8 sequences are replaced
// rather than rejected, since log files in particular are often dirty.
func (p *Parser) Parse(_ context.Context, content []byte, _ string) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
