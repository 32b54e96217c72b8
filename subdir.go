package gitview

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Subdir projects the tree at Path to the root of the filtered tree. Commits
// that never touch Path filter to their parent's tree and are elided by
// [Apply].
type Subdir struct {
	Path string
}

var _ Filter = (*Subdir)(nil)

// NewSubdir creates a [Subdir] for the given slash-separated path.
func NewSubdir(p string) *Subdir {
	return &Subdir{Path: strings.Trim(p, "/")}
}

func (f *Subdir) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	sub, err := subtreeAt(src.Tree, f.Path)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return emptyTree(ctx, s)
	}

	return sub, nil
}

func (f *Subdir) InvertPath(p string) (string, bool, error) {
	return path.Join(f.Path, p), false, nil
}

func (f *Subdir) Spec() string { return ":subdir=" + f.Path }

func (f *Subdir) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }

// Prefix nests the whole tree under Path, the inverse of [Subdir].
type Prefix struct {
	Path string
}

var _ Filter = (*Prefix)(nil)

// NewPrefix creates a [Prefix] for the given slash-separated path.
func NewPrefix(p string) *Prefix {
	return &Prefix{Path: strings.Trim(p, "/")}
}

func (f *Prefix) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	return nestTree(ctx, s, f.Path, src.Tree)
}

func (f *Prefix) InvertPath(p string) (string, bool, error) {
	rel, found := strings.CutPrefix(p, f.Path+"/")
	if !found {
		return "", false, fmt.Errorf("%w: %s is outside prefix %s", ErrUnroutableEdit, p, f.Path)
	}

	return rel, false, nil
}

func (f *Prefix) Spec() string { return ":prefix=" + f.Path }

func (f *Prefix) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }
