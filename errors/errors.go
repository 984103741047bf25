package errors

// PlatformError is an error with a code, a retry classification, a message
// and optional context metadata.
type PlatformError interface {
	error

	// Code returns the error code.
	Code() ErrorCode

	// Classification returns whether the error is retryable.
	Classification() ErrorClassification

	// Message returns the message without the wrapped cause.
	Message() string

	// Context returns a copy of the attached metadata, or nil.
	Context() map[string]interface{}

	// Unwrap returns the wrapped cause, or nil.
	Unwrap() error
}
