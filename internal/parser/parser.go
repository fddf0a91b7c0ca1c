package parser

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/document"
)

// Parser flattens raw document bytes into plain text.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return &CSVParser{}, nil
	case ".xlsx":
		return &XLSXParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, apperr.UnsupportedFormat(ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Extract turns a source document into text. An empty document yields ""
// with no error.
func Extract(src document.Source) (string, error) {
	p, err := ForFile(src.Filename)
	if err != nil {
		return "", err
	}
	text, err := p.Parse(bytes.NewReader(src.Data), src.Filename)
	if err != nil {
		return "", apperr.Extraction("extract "+src.Ext(), err)
	}
	return text, nil
}
