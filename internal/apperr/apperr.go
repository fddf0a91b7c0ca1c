// Package apperr defines the error kinds that cross pipeline stage boundaries.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindService           Kind = "service_error"
	KindExtraction        Kind = "extraction_error"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrService           = &Error{Kind: KindService}
	ErrExtraction        = &Error{Kind: KindExtraction}
)

// Error is a classified failure. Op names the stage that raised it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UnsupportedFormat reports a file extension the extractor cannot read.
func UnsupportedFormat(ext string) error {
	if ext == "" {
		ext = "(none)"
	}
	return &Error{
		Kind: KindUnsupportedFormat,
		Op:   "extract",
		Msg:  fmt.Sprintf("unsupported file format %s: supported formats are .xlsx, .csv, .docx", ext),
	}
}

// Service wraps a text-generation failure.
func Service(op string, err error) error {
	return &Error{Kind: KindService, Op: op, Err: err}
}

// Extraction wraps a failure reading a source file or writing a deck.
func Extraction(op string, err error) error {
	return &Error{Kind: KindExtraction, Op: op, Err: err}
}

// Extractionf builds an extraction error from a message.
func Extractionf(op, format string, args ...any) error {
	return &Error{Kind: KindExtraction, Op: op, Msg: fmt.Sprintf(format, args...)}
}
