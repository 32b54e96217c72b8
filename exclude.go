package gitview

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Exclude drops every tree entry matched by one of its gitignore-style
// patterns.
type Exclude struct {
	Patterns []string

	matcher gitignore.Matcher
}

var _ Filter = (*Exclude)(nil)

// NewExclude creates an [Exclude] for the given gitignore-style patterns.
func NewExclude(patterns []string) (*Exclude, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("exclude requires at least one pattern")
	}

	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("empty exclude pattern")
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}

	return &Exclude{
		Patterns: patterns,
		matcher:  gitignore.NewMatcher(ps),
	}, nil
}

func (f *Exclude) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	return f.filterTree(ctx, src.Tree, nil, s)
}

func (f *Exclude) filterTree(ctx context.Context, t *object.Tree, at []string, s storer.EncodedObjectStorer) (*object.Tree, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries := make([]object.TreeEntry, 0, len(t.Entries))

	for _, e := range t.Entries {
		p := append(append([]string(nil), at...), e.Name)
		isdir := e.Mode == filemode.Dir

		if f.matcher.Match(p, isdir) {
			continue
		}

		if !isdir {
			entries = append(entries, e)
			continue
		}

		sub, err := object.GetTree(s, e.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to read tree %s: %w", e.Hash, err)
		}
		newsub, err := f.filterTree(ctx, sub, p, s)
		if err != nil {
			return nil, err
		}
		if len(newsub.Entries) == 0 {
			continue
		}
		entries = append(entries, object.TreeEntry{
			Name: e.Name,
			Mode: filemode.Dir,
			Hash: newsub.Hash,
		})
	}

	return writeTree(ctx, s, entries)
}

func (f *Exclude) InvertPath(p string) (string, bool, error) {
	if f.matcher.Match(strings.Split(p, "/"), false) {
		return "", false, fmt.Errorf("%w: %s is excluded by the filter", ErrUnroutableEdit, p)
	}

	return p, false, nil
}

func (f *Exclude) Spec() string { return ":exclude=" + strings.Join(f.Patterns, ";") }

func (f *Exclude) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }
