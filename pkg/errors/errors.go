package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeUnknownCategory represents a lookup of a category that is not registered
	ErrorTypeUnknownCategory ErrorType = "unknown_category"
	// ErrorTypeAccommodationNotFound represents a lookup that matched no accommodation
	ErrorTypeAccommodationNotFound ErrorType = "accommodation_not_found"
	// ErrorTypeSession represents crawler session failures (open, use, closed session)
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinels for errors.Is checks. Matching is by Type only.
var (
	ErrUnknownCategory       = &CrawlerError{Type: ErrorTypeUnknownCategory}
	ErrAccommodationNotFound = &CrawlerError{Type: ErrorTypeAccommodationNotFound}
	ErrSession               = &CrawlerError{Type: ErrorTypeSession}
	ErrRateLimit             = &CrawlerError{Type: ErrorTypeRateLimit}
	ErrConfiguration         = &CrawlerError{Type: ErrorTypeConfiguration}
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Target  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Target, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Target, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CrawlerError of the same type
func (e *CrawlerError) Is(target error) bool {
	t, ok := target.(*CrawlerError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsType reports whether err wraps a CrawlerError of the given type
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	for err != nil {
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Type == errType {
			return true
		}
		err = ce.Err
	}
	return false
}

// New creates a new CrawlerError
func New(errType ErrorType, target, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Target:  target,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewUnknownCategory creates an error for a category missing from the registry
func NewUnknownCategory(category string) *CrawlerError {
	return New(ErrorTypeUnknownCategory, category, fmt.Sprintf("Unknown category: %s", category), nil)
}

// NewAccommodationNotFound creates an error for an accommodation missing from a category
func NewAccommodationNotFound(category, accommodation string) *CrawlerError {
	message := fmt.Sprintf("Accommodation not found: %s in %s", accommodation, category)
	return New(ErrorTypeAccommodationNotFound, category, message, nil)
}

// NewSession creates a new session error
func NewSession(crawler, message string, err error) *CrawlerError {
	return New(ErrorTypeSession, crawler, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(target, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, target, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(target, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, target, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(target string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, target, message, nil)
}

// NewCache creates a new cache error
func NewCache(target, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, target, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(target, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, target, message, err)
}

// NewValidation creates a new validation error
func NewValidation(target, message string) *CrawlerError {
	return New(ErrorTypeValidation, target, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}
