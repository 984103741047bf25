package errors

// ErrorCode identifies a failure condition.
// Codes are plain strings so they read well in logs and JSON output.
type ErrorCode string

// Acquisition errors.
const (
	// CodeInvalidSpec indicates a repository spec could not be reduced to a repository path.
	CodeInvalidSpec ErrorCode = "INVALID_SPEC"

	// CodeUnsupportedProvider indicates an explicit provider token is not recognized.
	CodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"

	// CodeOfflineUnavailable indicates offline mode was requested but nothing is cached.
	CodeOfflineUnavailable ErrorCode = "OFFLINE_UNAVAILABLE"

	// CodeSubdirNotFound indicates the requested subdirectory is absent from the fetched tree.
	CodeSubdirNotFound ErrorCode = "SUBDIR_NOT_FOUND"

	// CodeTargetNotEmpty indicates the destination already holds content.
	CodeTargetNotEmpty ErrorCode = "TARGET_NOT_EMPTY"

	// CodeCloneFailed indicates a repository could not be cloned.
	CodeCloneFailed ErrorCode = "CLONE_FAILED"

	// CodeFetchFailed indicates a cached repository could not be refreshed.
	CodeFetchFailed ErrorCode = "FETCH_FAILED"

	// CodeStageFailed indicates a filesystem failure while staging or extracting.
	CodeStageFailed ErrorCode = "STAGE_FAILED"
)

// Resource errors.
const (
	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeConflict indicates a resource state conflict.
	CodeConflict ErrorCode = "CONFLICT"
)

// Permission errors.
const (
	// CodeUnauthorized indicates missing or invalid credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the credentials lack permission.
	CodeForbidden ErrorCode = "FORBIDDEN"
)

// Validation errors.
const (
	// CodeInvalidInput indicates malformed caller input.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"
)

// Infrastructure errors.
const (
	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeCanceled indicates the operation was canceled by its caller.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeExecutionFailed indicates an external command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"
)

// System errors.
const (
	// CodeInternal indicates an internal error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeNotImplemented indicates the functionality is not implemented.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)
