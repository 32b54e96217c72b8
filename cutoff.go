package gitview

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Cutoff truncates ancestry walking: any commit reachable from Ref is treated
// as a root of the filtered history. It does not change trees. Chaining a
// Cutoff at the current source position in front of a filter yields squash
// semantics, collapsing all prior history into a single synthetic base.
type Cutoff struct {
	Ref string

	// commit the ref resolved to. Once set, the filter identity reports
	// this commit instead of the ref name, so cached results are tied to
	// the position the ref had, not to whatever it points at later.
	commit plumbing.Hash
}

var _ Filter = (*Cutoff)(nil)

// NewCutoff creates a [Cutoff] at the given revision name.
func NewCutoff(ref string) *Cutoff {
	return &Cutoff{Ref: ref}
}

func (f *Cutoff) Apply(_ context.Context, src *Source, _ storer.EncodedObjectStorer) (*object.Tree, error) {
	return src.Tree, nil
}

func (f *Cutoff) InvertPath(p string) (string, bool, error) { return p, false, nil }

func (f *Cutoff) Spec() string {
	if !f.commit.IsZero() {
		return ":cutoff=" + f.commit.String()
	}

	return ":cutoff=" + f.Ref
}

func (f *Cutoff) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }

// resolve pins the cutoff to the commit its ref currently points at. Later
// calls return the pinned commit without consulting the storage again.
func (f *Cutoff) resolve(s storer.Storer) (plumbing.Hash, error) {
	if !f.commit.IsZero() {
		return f.commit, nil
	}

	h, err := ResolveCommit(s, f.Ref)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve cutoff %s: %w", f.Ref, err)
	}

	f.commit = h

	return h, nil
}

// walkFilters visits every node of the filter tree, descending into chains
// and workspace mounts.
func walkFilters(f Filter, visit func(Filter) error) error {
	if err := visit(f); err != nil {
		return err
	}

	switch v := f.(type) {
	case *Chain:
		if err := walkFilters(v.Inner, visit); err != nil {
			return err
		}

		return walkFilters(v.Outer, visit)
	case *Workspace:
		for _, m := range v.Mounts {
			if err := walkFilters(m.Filter, visit); err != nil {
				return err
			}
		}
	}

	return nil
}

// PinCutoffs resolves every [Cutoff] in the filter tree to the commit its
// ref currently points at. This makes [Filter.Spec] position-independent:
// a persisted cache keyed on the pinned identity is never served for the
// same ref name pointing somewhere else. [Apply] pins automatically; call
// this before loading a persisted cache for the filter.
func PinCutoffs(s storer.Storer, f Filter) error {
	return walkFilters(f, func(f Filter) error {
		v, ok := f.(*Cutoff)
		if !ok {
			return nil
		}

		_, err := v.resolve(s)

		return err
	})
}

// cutoffRoots pins the cutoffs of the filter tree and collects the full set
// of commits reachable from them. [Apply] treats these as traversal roots.
func cutoffRoots(ctx context.Context, s storer.Storer, f Filter) (HashSet, error) {
	result := make(HashSet)

	err := walkFilters(f, func(f Filter) error {
		v, ok := f.(*Cutoff)
		if !ok {
			return nil
		}

		h, err := v.resolve(s)
		if err != nil {
			return err
		}
		head, err := object.GetCommit(s, h)
		if err != nil {
			return fmt.Errorf("failed to read cutoff commit %s: %w", h, err)
		}
		reachable, err := GetDFSPath(ctx, head, nil)
		if err != nil {
			return fmt.Errorf("failed to walk cutoff history from %s: %w", v.Ref, err)
		}
		result = CombineHashSets(result, NewHashSetFromCommits(reachable))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
