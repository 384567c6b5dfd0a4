package parsers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/parsers/markdown"
	"github.com/custodia-labs/tome/internal/parsers/plaintext"
)

// Registry selects a parser by filename extension.
type Registry struct {
	byExt map[string]driven.Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]driven.Parser),
	}
}

// Register adds a parser for all of its supported extensions.
func (r *Registry) Register(p driven.Parser) {
	for _, ext := range p.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// ForFilename returns the parser for the filename's extension, or an
// unsupported-type error naming the extension.
func (r *Registry) ForFilename(filename string) (driven.Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", domain.ErrUnsupportedType, filename)
	}

	p, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedType, ext, strings.Join(r.Extensions(), ", "))
	}
	return p, nil
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// NewDefaultRegistry returns a registry with all built-in parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	return r
}
