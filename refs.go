package gitview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// StagingRef is the well-known temporary reference a reverse run stages its
// forward-filtered result under. It is overwritten on every run, never
// appended to.
const StagingRef = "refs/gitview/tmp"

// FindRef resolves a reference name the way git rev-parse does, trying the
// name verbatim and then under refs/, refs/tags/, refs/heads/ and
// refs/remotes/. Symbolic references, HEAD included, are followed.
func FindRef(s storer.ReferenceStorer, name string) (*plumbing.Reference, error) {
	for _, rule := range plumbing.RefRevParseRules {
		r, err := storer.ResolveReference(s, plumbing.ReferenceName(fmt.Sprintf(rule, name)))
		if err == nil && r != nil && !r.Hash().IsZero() {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrRefNotFound, name)
}

// ResolveCommit resolves a revision name to a commit hash. The name may be a
// full hex hash or any reference name accepted by [FindRef]; annotated tags
// are peeled.
func ResolveCommit(s storer.Storer, name string) (plumbing.Hash, error) {
	if h, err := DecodeHashHex(name); err == nil {
		if _, gerr := object.GetCommit(s, h); gerr == nil {
			return h, nil
		}
	}

	r, err := FindRef(s, name)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return peelToCommit(s, r.Hash())
}

func peelToCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (plumbing.Hash, error) {
	for i := 0; i < 10; i++ {
		if _, err := object.GetCommit(s, h); err == nil {
			return h, nil
		}

		tag, err := object.GetTag(s, h)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%s does not point to a commit", h)
		}
		h = tag.Target
	}

	return plumbing.ZeroHash, fmt.Errorf("tag chain at %s is too deep", h)
}

// TargetRefName expands a target name to a full reference name: names
// already under refs/ are used verbatim, anything else becomes a branch
// under refs/heads/.
func TargetRefName(name string) plumbing.ReferenceName {
	if strings.HasPrefix(name, "refs/") {
		return plumbing.ReferenceName(name)
	}

	return plumbing.NewBranchReferenceName(name)
}

// UpdateRef points the named reference at h, compare-and-swapping against
// the reference's current value so a concurrent move of the same reference
// fails instead of being overwritten blindly.
func UpdateRef(s storer.ReferenceStorer, name string, h plumbing.Hash) error {
	refname := TargetRefName(name)

	old, err := s.Reference(refname)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		old = nil
	case err != nil:
		return fmt.Errorf("failed to read reference %s: %w", refname, err)
	}

	if err := s.CheckAndSetReference(plumbing.NewHashReference(refname, h), old); err != nil {
		return fmt.Errorf("failed to update reference %s: %w", refname, err)
	}

	return nil
}
