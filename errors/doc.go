// Package errors provides the structured error type used across seed.
//
// Every failure surfaced by the acquisition engine is a PlatformError: it
// carries an ErrorCode (INVALID_SPEC, CLONE_FAILED, TARGET_NOT_EMPTY, ...),
// a retry classification, a human readable message and a context map with
// the details needed to act on it (repository URL, ref, path, state).
// PlatformError values work with the standard library's errors.Is,
// errors.As and errors.Unwrap.
//
// Creating and wrapping:
//
//	err := errors.New(errors.CodeInvalidSpec, "repository spec is empty")
//
//	if err := repo.Fetch(ctx); err != nil {
//	    return errors.WrapWithContext(err, errors.CodeFetchFailed, "failed to refresh cache", map[string]interface{}{
//	        "url": url,
//	        "ref": ref,
//	    })
//	}
//
// Inspecting:
//
//	switch errors.GetCode(err) {
//	case errors.CodeOfflineUnavailable:
//	    // nothing cached
//	case errors.CodeTargetNotEmpty:
//	    // destination conflict
//	}
//
// Classification is preserved when a PlatformError is wrapped, so a network
// failure wrapped as CLONE_FAILED stays retryable. ToJSON renders an error
// for machine readable CLI output without exposing the wrapped chain.
package errors
