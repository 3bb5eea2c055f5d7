package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSession represents browser start-up and session errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeNavigation represents page load and control errors
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeExtraction represents HTML parsing errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeSummarization represents summarization service errors
	ErrorTypeSummarization ErrorType = "summarization"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeExport represents spreadsheet export errors
	ErrorTypeExport ErrorType = "export"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error ends a crawl run.
// Only a browser that cannot be started or a listing page that never loads qualify.
func (e *CrawlerError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeSession, ErrorTypeNavigation:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err wraps a fatal CrawlerError
func IsFatal(err error) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsFatal()
	}
	return false
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewSession creates a new session error
func NewSession(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeSession, provider, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNavigation, provider, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeExtraction, provider, message, err)
}

// NewSummarization creates a new summarization error
func NewSummarization(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeSummarization, provider, message, err)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewExport creates a new export error
func NewExport(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeExport, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}
