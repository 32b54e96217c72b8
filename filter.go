package gitview

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Source is the input to one filter application: the tree being transformed
// and the original commit it came from. The commit is only consulted by
// provenance filters such as [Info]; it may be nil when filtering a bare
// tree.
type Source struct {
	Commit *object.Commit
	Tree   *object.Tree
}

// Member is one (mount path, canonical filter text) pair exposed by a filter,
// used to build per-path provenance annotations.
type Member struct {
	Path string
	Spec string
}

// Filter is a pure transform over git trees. The output of [Filter.Apply] is
// a function of the input tree and the filter's own parameters only, which is
// what makes caching results by content hash sound.
//
// The concrete filters are [Nop], [Subdir], [Prefix], [Rename], [Exclude],
// [Workspace], [Info], [Cutoff] and the sequential composition [Chain].
type Filter interface {
	// Apply transforms the source tree, writing any newly created objects
	// into s, and returns the filtered tree.
	Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error)

	// InvertPath translates a slash-separated file path in filtered
	// coordinates back to original coordinates. discard reports paths whose
	// edits are dropped rather than written back (provenance files); an
	// error wrapping [ErrUnroutableEdit] reports paths the filter cannot
	// translate.
	InvertPath(path string) (orig string, discard bool, err error)

	// Spec returns the canonical textual form of the filter. Two filters
	// with equal Spec produce identical output for identical input, so the
	// returned string doubles as the cache identity in [ViewMaps].
	Spec() string

	// Members lists the mount points of the filter for provenance
	// discovery. Filters other than [Workspace] report a single member at
	// the filtered root.
	Members() []Member
}

// Nop is the identity filter, produced by parsing an empty filter expression.
type Nop struct{}

var _ Filter = Nop{}

func (Nop) Apply(_ context.Context, src *Source, _ storer.EncodedObjectStorer) (*object.Tree, error) {
	return src.Tree, nil
}

func (Nop) InvertPath(path string) (string, bool, error) { return path, false, nil }

func (Nop) Spec() string { return "" }

func (n Nop) Members() []Member { return []Member{{Path: "", Spec: ""}} }

// Chain applies Inner first, then Outer to its result.
type Chain struct {
	Inner Filter
	Outer Filter
}

var _ Filter = (*Chain)(nil)

// NewChain composes two filters sequentially, collapsing [Nop] on either
// side.
func NewChain(inner, outer Filter) Filter {
	if _, ok := inner.(Nop); ok {
		return outer
	}
	if _, ok := outer.(Nop); ok {
		return inner
	}

	return &Chain{Inner: inner, Outer: outer}
}

func (f *Chain) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	mid, err := f.Inner.Apply(ctx, src, s)
	if err != nil {
		return nil, err
	}

	return f.Outer.Apply(ctx, &Source{Commit: src.Commit, Tree: mid}, s)
}

func (f *Chain) InvertPath(path string) (string, bool, error) {
	mid, discard, err := f.Outer.InvertPath(path)
	if err != nil || discard {
		return "", discard, err
	}

	return f.Inner.InvertPath(mid)
}

func (f *Chain) Spec() string {
	return f.Inner.Spec() + f.Outer.Spec()
}

// Members reports the outer filter's mount points, each prefixed with the
// inner filter's canonical text so a member's spec remains a runnable filter.
func (f *Chain) Members() []Member {
	outer := f.Outer.Members()
	result := make([]Member, 0, len(outer))
	for _, m := range outer {
		result = append(result, Member{Path: m.Path, Spec: f.Inner.Spec() + m.Spec})
	}

	return result
}
