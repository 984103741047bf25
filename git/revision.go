package git

import (
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const peeledSuffix = "^{}"

// ResolveReference finds ref among refs advertised by a remote. Branches
// win over tags; for annotated tags the peeled commit is returned. The
// boolean is false when ref is not advertised.
//
// Example:
//
//	refs, _ := git.LsRemote(ctx, url)
//	target, ok := git.ResolveReference(refs, "v2")
func ResolveReference(refs []Reference, ref string) (Reference, bool) {
	byName := make(map[string]plumbing.Hash, len(refs))
	for _, r := range refs {
		byName[r.Name.String()] = r.Hash
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
	if ref == plumbing.HEAD.String() || strings.HasPrefix(ref, "refs/") {
		candidates = []plumbing.ReferenceName{plumbing.ReferenceName(ref)}
	}

	for _, name := range candidates {
		hash, ok := byName[name.String()]
		if !ok {
			continue
		}
		if peeled, ok := byName[name.String()+peeledSuffix]; ok {
			hash = peeled
		}
		return Reference{Name: name, Hash: hash}, true
	}
	return Reference{}, false
}

// IsHash reports whether ref is a full hexadecimal commit hash.
func IsHash(ref string) bool {
	return len(ref) == 40 && plumbing.IsHash(ref)
}

// Head returns the commit HEAD points to.
func (r *Repository) Head() (plumbing.Hash, error) {
	head, err := r.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, wrapError(err, "failed to resolve HEAD")
	}
	return head.Hash(), nil
}

// RevParse resolves a revision (ref name, short name or hash) to a commit.
// Annotated tags are peeled.
func (r *Repository) RevParse(rev string) (plumbing.Hash, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, wrapError(err, fmt.Sprintf("failed to resolve revision %q", rev))
	}
	return *hash, nil
}

// Checkout moves the working tree and the current branch (or a detached
// HEAD) to hash, discarding local modifications.
func (r *Repository) Checkout(hash plumbing.Hash) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return wrapError(err, "failed to get worktree")
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: hash, Mode: gogit.HardReset}); err != nil {
		return wrapError(err, fmt.Sprintf("failed to check out %s", hash))
	}
	return nil
}

// CheckoutDetached checks out hash with a detached HEAD.
func (r *Repository) CheckoutDetached(hash plumbing.Hash) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return wrapError(err, "failed to get worktree")
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return wrapError(err, fmt.Sprintf("failed to check out %s", hash))
	}
	return nil
}
