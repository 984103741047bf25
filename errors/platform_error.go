package errors

import "fmt"

// platformError is the only PlatformError implementation. Callers build
// one through New, Wrap and friends.
type platformError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error formats the error as "[CODE] message" with ": cause" appended when wrapped.
func (e *platformError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *platformError) Code() ErrorCode {
	return e.code
}

// Classification returns whether the error is retryable.
func (e *platformError) Classification() ErrorClassification {
	return e.classification
}

// Message returns the message without the cause.
func (e *platformError) Message() string {
	return e.message
}

// Context returns a copy of the attached metadata, or nil when none was
// attached. Mutating the copy never affects the error.
func (e *platformError) Context() map[string]interface{} {
	return copyContext(e.context)
}

// Unwrap returns the wrapped cause for errors.Is and errors.As.
func (e *platformError) Unwrap() error {
	return e.cause
}

// copyContext returns a shallow copy of ctx, keeping nil as nil.
func copyContext(ctx map[string]interface{}) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
