package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/dgallion1/docdeck/internal/apperr"
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// serviceError classifies a provider failure by HTTP status. A zero status
// means a transport failure, which is not retried.
func serviceError(provider string, status int, err error) error {
	if status != 0 && retryableStatus(status) {
		err = &RetryableError{StatusCode: status, Message: err.Error(), Err: err}
	}
	return apperr.Service(provider, err)
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json|markdown|text)?\\s*(.*?)\\s*```$")

// StripCodeBlock removes a single fenced code block around s.
func StripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
