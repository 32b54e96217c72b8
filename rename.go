package gitview

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RenamePair moves the entry at From to To.
type RenamePair struct {
	From string
	To   string
}

// Rename moves a list of paths, applied in order. Paths not named by any pair
// pass through unchanged.
type Rename struct {
	Pairs []RenamePair
}

var _ Filter = (*Rename)(nil)

// NewRename creates a [Rename] from the given pairs. Two pairs moving
// distinct sources onto the same destination are rejected, since the move
// could not be inverted.
func NewRename(pairs []RenamePair) (*Rename, error) {
	seen := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.From == "" || p.To == "" {
			return nil, fmt.Errorf("rename pair needs both a source and a destination, got %q -> %q", p.From, p.To)
		}
		if prev, found := seen[p.To]; found {
			return nil, fmt.Errorf("rename destination %s claimed by both %s and %s", p.To, prev, p.From)
		}
		seen[p.To] = p.From
	}

	return &Rename{Pairs: pairs}, nil
}

func (f *Rename) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	t := src.Tree

	for _, pair := range f.Pairs {
		entry, err := t.FindEntry(pair.From)
		if err != nil {
			// nothing at the source in this commit, nothing to move.
			continue
		}
		moved := *entry

		t, err = treeDelete(ctx, s, t, pair.From)
		if err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", pair.From, err)
		}
		t, err = treeInsert(ctx, s, t, pair.To, moved)
		if err != nil {
			return nil, fmt.Errorf("failed to place %s: %w", pair.To, err)
		}
	}

	return t, nil
}

func (f *Rename) InvertPath(p string) (string, bool, error) {
	for _, pair := range f.Pairs {
		if p == pair.To {
			return pair.From, false, nil
		}
		if rel, found := strings.CutPrefix(p, pair.To+"/"); found {
			return path.Join(pair.From, rel), false, nil
		}
	}

	// the source location of a pair is vacated by the forward transform, an
	// edit there cannot have a single original location.
	for _, pair := range f.Pairs {
		if p == pair.From || strings.HasPrefix(p, pair.From+"/") {
			return "", false, fmt.Errorf("%w: %s is vacated by rename of %s", ErrUnroutableEdit, p, pair.From)
		}
	}

	return p, false, nil
}

func (f *Rename) Spec() string {
	parts := make([]string, 0, len(f.Pairs))
	for _, p := range f.Pairs {
		parts = append(parts, p.From+"="+p.To)
	}

	return ":rename=" + strings.Join(parts, ";")
}

func (f *Rename) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }
