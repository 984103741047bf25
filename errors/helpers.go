package errors

import (
	stderrors "errors"
)

// Is wraps the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As wraps the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode returns the code of the outermost PlatformError in err's chain.
// Returns CodeUnknown for nil or plain errors.
func GetCode(err error) ErrorCode {
	var pe PlatformError
	if err != nil && stderrors.As(err, &pe) {
		return pe.Code()
	}
	return CodeUnknown
}

// HasCode reports whether any PlatformError in err's chain carries code.
// Unlike GetCode it looks past the outermost error, so a SUBDIR_NOT_FOUND
// wrapped by a later stage is still found.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if pe, ok := err.(PlatformError); ok && pe.Code() == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// GetClassification returns the classification of the outermost PlatformError.
// Returns ClassificationPermanent for nil or plain errors.
func GetClassification(err error) ErrorClassification {
	var pe PlatformError
	if err != nil && stderrors.As(err, &pe) {
		return pe.Classification()
	}
	return ClassificationPermanent
}

// IsRetryable reports whether err is classified as retryable.
//
// Example:
//
//	res, err := acquirer.Acquire(ctx, spec, dest, opts)
//	if err != nil && errors.IsRetryable(err) {
//	    // caller-owned retry policy
//	}
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}
