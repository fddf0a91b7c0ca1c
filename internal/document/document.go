package document

import (
	"path/filepath"
	"strings"
)

// Source is an uploaded file before extraction.
type Source struct {
	Filename string // Sanitized base name as uploaded
	Data     []byte // Raw file bytes
}

// Ext returns the lowercase extension including the dot, e.g. ".xlsx".
func (s Source) Ext() string {
	return strings.ToLower(filepath.Ext(s.Filename))
}

// Title derives a display title from the filename.
func (s Source) Title() string {
	base := filepath.Base(s.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Chunk is a token-bounded slice of extracted text, ready for analysis.
type Chunk struct {
	Text   string // Trimmed chunk text, never empty
	Index  int    // Sequence number within the document
	Tokens int    // Token count under the tokenizer used to build it
}
