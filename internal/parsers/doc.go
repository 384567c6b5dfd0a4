// Package parsers provides document parser implementations and a registry
// selecting a parser by filename extension. Binary formats (PDF, DOCX) are
// out of scope; parsers here handle text-based formats only.
package parsers
