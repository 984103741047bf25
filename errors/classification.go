package errors

// ErrorClassification tells callers whether retrying an operation may help.
// The engine itself never retries; the classification is advice for callers.
type ErrorClassification string

const (
	// ClassificationRetryable marks transient failures such as network errors.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that will repeat on retry.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable reports whether the classification is retryable.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeNetwork:     ClassificationRetryable,
	CodeTimeout:     ClassificationRetryable,
	CodeCloneFailed: ClassificationRetryable,
	CodeFetchFailed: ClassificationRetryable,

	CodeInvalidSpec:         ClassificationPermanent,
	CodeUnsupportedProvider: ClassificationPermanent,
	CodeOfflineUnavailable:  ClassificationPermanent,
	CodeSubdirNotFound:      ClassificationPermanent,
	CodeTargetNotEmpty:      ClassificationPermanent,
	CodeStageFailed:         ClassificationPermanent,
	CodeNotFound:            ClassificationPermanent,
	CodeAlreadyExists:       ClassificationPermanent,
	CodeConflict:            ClassificationPermanent,
	CodeUnauthorized:        ClassificationPermanent,
	CodeForbidden:           ClassificationPermanent,
	CodeInvalidInput:        ClassificationPermanent,
	CodeInvalidConfig:       ClassificationPermanent,
	CodeCanceled:            ClassificationPermanent,
	CodeExecutionFailed:     ClassificationPermanent,
	CodeInternal:            ClassificationPermanent,
	CodeNotImplemented:      ClassificationPermanent,
	CodeUnknown:             ClassificationPermanent,
}

// classificationFor returns the default classification for code.
// Unknown codes are permanent.
func classificationFor(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
