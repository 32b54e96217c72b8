package gitview

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// WorkspaceMember mounts the output of Filter at Path in the workspace tree.
type WorkspaceMember struct {
	Path   string
	Filter Filter
}

// Workspace composes several sub-filters into one tree, each member's output
// mounted at its path.
type Workspace struct {
	Mounts []WorkspaceMember
}

var _ Filter = (*Workspace)(nil)

// NewWorkspace creates a [Workspace]. Mount paths must be non-empty and
// unique.
func NewWorkspace(mounts []WorkspaceMember) (*Workspace, error) {
	if len(mounts) == 0 {
		return nil, fmt.Errorf("workspace requires at least one mount")
	}

	seen := make(map[string]empty, len(mounts))
	for _, m := range mounts {
		if m.Path == "" {
			return nil, fmt.Errorf("workspace mount path cannot be empty")
		}
		if _, found := seen[m.Path]; found {
			return nil, fmt.Errorf("duplicate workspace mount %s", m.Path)
		}
		seen[m.Path] = empty{}
	}

	return &Workspace{Mounts: mounts}, nil
}

func (f *Workspace) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	var out *object.Tree

	for _, m := range f.Mounts {
		sub, err := m.Filter.Apply(ctx, src, s)
		if err != nil {
			return nil, fmt.Errorf("failed to filter workspace mount %s: %w", m.Path, err)
		}
		if len(sub.Entries) == 0 {
			continue
		}

		out, err = treeInsert(ctx, s, out, m.Path, object.TreeEntry{
			Mode: filemode.Dir,
			Hash: sub.Hash,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to mount %s: %w", m.Path, err)
		}
	}

	if out == nil {
		return emptyTree(ctx, s)
	}

	return out, nil
}

// InvertPath routes the path to the member whose mount point it falls under,
// longest mount first, and recurses into that member's filter.
func (f *Workspace) InvertPath(p string) (string, bool, error) {
	mounts := make([]WorkspaceMember, len(f.Mounts))
	copy(mounts, f.Mounts)
	sort.Slice(mounts, func(i, j int) bool { return len(mounts[i].Path) > len(mounts[j].Path) })

	for _, m := range mounts {
		rel, found := strings.CutPrefix(p, m.Path+"/")
		if !found {
			continue
		}

		orig, discard, err := m.Filter.InvertPath(rel)
		if err != nil || discard {
			return "", discard, err
		}

		return orig, false, nil
	}

	return "", false, fmt.Errorf("%w: %s is under no workspace mount", ErrUnroutableEdit, p)
}

func (f *Workspace) Spec() string {
	parts := make([]string, 0, len(f.Mounts))
	for _, m := range f.Mounts {
		parts = append(parts, m.Path+"=("+m.Filter.Spec()+")")
	}

	return ":workspace=" + strings.Join(parts, ";")
}

// Members exposes the (mount path, nested spec) pairs of the workspace.
func (f *Workspace) Members() []Member {
	result := make([]Member, 0, len(f.Mounts))
	for _, m := range f.Mounts {
		result = append(result, Member{Path: path.Clean(m.Path), Spec: m.Filter.Spec()})
	}

	return result
}
