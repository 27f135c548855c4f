package domain

import "errors"

var (
	ErrNoConnection        = errors.New("no active connection for platform")
	ErrUnknownConnection   = errors.New("connection id is not registered")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotConnected        = errors.New("platform is not connected")
	ErrUnsupportedPlatform = errors.New("platform has no adapter")
	ErrLayoutNotFound      = errors.New("layout not found")
	ErrProgramNotFound     = errors.New("program not found")
	ErrNoMorePages         = errors.New("no more pages")
	ErrSessionNotReady     = errors.New("WhatsApp client is not ready")
	ErrSessionInitializing = errors.New("client is already initializing")
	ErrSessionUnavailable  = errors.New("WhatsApp session is not available")
)

// ValidationError is a missing or malformed input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is one of the lookup misses
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrLayoutNotFound) ||
		errors.Is(err, ErrProgramNotFound) ||
		errors.Is(err, ErrNotConnected)
}
