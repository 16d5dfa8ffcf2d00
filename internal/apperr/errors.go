// Package apperr defines the error taxonomy shared across the ingestion
// pipeline and the chat surface.
package apperr

import (
	"errors"
	"fmt"
)

// DocumentProcessingError marks failures that are inherent to the uploaded
// document (unsupported format, no extractable content, OCR yielded
// nothing). These are terminal for the document: retrying the job will not
// fix them, but the queue still owns the retry decision.
type DocumentProcessingError struct {
	Message string
	DocID   string
	FileURL string
}

func (e *DocumentProcessingError) Error() string {
	return e.Message
}

func NewDocumentProcessingError(message string) *DocumentProcessingError {
	return &DocumentProcessingError{Message: message}
}

// ExternalAPIError wraps a failed call to an external provider and names
// the provider so operators can tell an embedding outage from a chat
// model outage in the logs.
type ExternalAPIError struct {
	Message  string
	Provider string
	Err      error
}

func (e *ExternalAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Provider)
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

func NewExternalAPIError(message, provider string, err error) *ExternalAPIError {
	return &ExternalAPIError{Message: message, Provider: provider, Err: err}
}

// ErrNotFound is returned when a referenced course or document does not
// exist. Repositories wrap it with context via fmt.Errorf and %w.
var ErrNotFound = errors.New("resource not found")

// IsDocumentProcessing reports whether err is (or wraps) a
// DocumentProcessingError.
func IsDocumentProcessing(err error) bool {
	var dpe *DocumentProcessingError
	return errors.As(err, &dpe)
}
