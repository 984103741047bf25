package git

import (
	"context"
	"errors"
	"fmt"
	"net"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	platformerrors "github.com/jmgilman/seed/errors"
)

// wrapError classifies err into a platform error code and wraps it with
// message. Errors that are already platform errors keep their code.
// Returns nil if err is nil.
func wrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var pe platformerrors.PlatformError
	if errors.As(err, &pe) {
		return fmt.Errorf("%s: %w", message, err)
	}

	return platformerrors.Wrap(err, classifyError(err), message)
}

// classifyError maps go-git, transport and context errors to codes.
//
//nolint:gocyclo,cyclop // flat mapping
func classifyError(err error) platformerrors.ErrorCode {
	switch {
	case errors.Is(err, context.Canceled):
		return platformerrors.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return platformerrors.CodeTimeout

	case errors.Is(err, gogit.ErrRepositoryNotExists),
		errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, gogit.ErrRemoteNotFound),
		errors.Is(err, transport.ErrEmptyRemoteRepository):
		return platformerrors.CodeNotFound

	case errors.Is(err, gogit.ErrRepositoryAlreadyExists),
		errors.Is(err, gogit.ErrRemoteExists):
		return platformerrors.CodeAlreadyExists

	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return platformerrors.CodeUnauthorized

	case errors.Is(err, gogit.ErrWorktreeNotClean),
		errors.Is(err, gogit.ErrEmptyCommit):
		return platformerrors.CodeConflict

	case errors.Is(err, gogit.ErrMissingURL),
		errors.Is(err, gogit.ErrMissingAuthor),
		errors.Is(err, transport.ErrEmptyUploadPackRequest):
		return platformerrors.CodeInvalidInput
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return platformerrors.CodeTimeout
		}
		return platformerrors.CodeNetwork
	}

	return platformerrors.CodeUnknown
}
