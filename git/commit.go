package git

import (
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	platformerrors "github.com/jmgilman/seed/errors"
)

// AddAll stages every change in the working tree, including deletions.
func (r *Repository) AddAll() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return wrapError(err, "failed to get worktree")
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return wrapError(err, "failed to stage changes")
	}
	return nil
}

// CreateCommit commits the staged changes on HEAD and returns the hash.
// A clean tree fails with CONFLICT unless AllowEmpty is set.
//
// Example:
//
//	hash, err := repo.CreateCommit(git.CommitOptions{
//	    Author:  "seed",
//	    Email:   "seed@localhost",
//	    Message: "Initial commit",
//	})
func (r *Repository) CreateCommit(opts CommitOptions) (string, error) {
	switch {
	case opts.Author == "":
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "commit author is required")
	case opts.Email == "":
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "commit email is required")
	case opts.Message == "":
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "commit message is required")
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", wrapError(err, "failed to get worktree")
	}

	hash, err := wt.Commit(opts.Message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  opts.Author,
			Email: opts.Email,
			When:  time.Now(),
		},
		AllowEmptyCommits: opts.AllowEmpty,
	})
	if err != nil {
		return "", wrapError(err, "failed to create commit")
	}

	return hash.String(), nil
}
