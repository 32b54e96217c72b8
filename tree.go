package gitview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// GetHash calculates the hash of an [object.Object] without saving it to any
// storage.
func GetHash(o object.Object) (*plumbing.Hash, error) {
	m := &plumbing.MemoryObject{}
	if err := o.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode object: %w", err)
	}

	h := m.Hash()

	return &h, nil
}

// saveObject encodes o into s and returns the resulting hash.
func saveObject(o object.Object, s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	eo := s.NewEncodedObject()
	if err := o.Encode(eo); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode object: %w", err)
	}

	return s.SetEncodedObject(eo)
}

// updateHashAndSave saves the commit into s and sets its Hash to the stored
// hash.
func updateHashAndSave(ctx context.Context, c *object.Commit, s storer.EncodedObjectStorer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	h, err := saveObject(c, s)
	if err != nil {
		return err
	}

	c.Hash = h

	return nil
}

// entrySortName is the name git uses to order tree entries: directories sort
// as if their name had a trailing slash.
func entrySortName(e *object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}

	return e.Name
}

func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entrySortName(&entries[i]) < entrySortName(&entries[j])
	})
}

// writeTree sorts the entries into canonical git order, stores the tree, and
// reloads it from s so that lookups on the returned tree work.
func writeTree(ctx context.Context, s storer.EncodedObjectStorer, entries []object.TreeEntry) (*object.Tree, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sortTreeEntries(entries)

	t := &object.Tree{Entries: entries}

	h, err := saveObject(t, s)
	if err != nil {
		return nil, fmt.Errorf("failed to save tree: %w", err)
	}

	return object.GetTree(s, h)
}

// emptyTree stores and returns the empty tree.
func emptyTree(ctx context.Context, s storer.EncodedObjectStorer) (*object.Tree, error) {
	return writeTree(ctx, s, nil)
}

// subtreeAt returns the tree at path below t, or nil if the path doesn't
// exist or isn't a directory.
func subtreeAt(t *object.Tree, path string) (*object.Tree, error) {
	if path == "" {
		return t, nil
	}

	sub, err := t.Tree(path)
	if errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to descend to %s: %w", path, err)
	}

	return sub, nil
}

// treeInsert returns a new tree that is t with the entry placed at path,
// creating intermediate directories as needed. t may be nil for an empty
// base.
func treeInsert(ctx context.Context, s storer.EncodedObjectStorer, t *object.Tree, path string, entry object.TreeEntry) (*object.Tree, error) {
	name, rest, _ := strings.Cut(path, "/")

	var entries []object.TreeEntry
	if t != nil {
		entries = make([]object.TreeEntry, 0, len(t.Entries)+1)
		for _, e := range t.Entries {
			if e.Name != name {
				entries = append(entries, e)
			}
		}
	}

	if rest == "" {
		entry.Name = name
		entries = append(entries, entry)

		return writeTree(ctx, s, entries)
	}

	var sub *object.Tree
	if t != nil {
		var err error
		sub, err = subtreeAt(t, name)
		if err != nil {
			return nil, err
		}
	}

	newsub, err := treeInsert(ctx, s, sub, rest, entry)
	if err != nil {
		return nil, err
	}

	entries = append(entries, object.TreeEntry{
		Name: name,
		Mode: filemode.Dir,
		Hash: newsub.Hash,
	})

	return writeTree(ctx, s, entries)
}

// treeDelete returns a new tree that is t without the entry at path.
// Directories left empty by the removal are pruned. Deleting a path that
// doesn't exist returns t unchanged.
func treeDelete(ctx context.Context, s storer.EncodedObjectStorer, t *object.Tree, path string) (*object.Tree, error) {
	if t == nil {
		return nil, nil
	}

	name, rest, _ := strings.Cut(path, "/")

	entries := make([]object.TreeEntry, 0, len(t.Entries))
	var target *object.TreeEntry
	for i, e := range t.Entries {
		if e.Name == name {
			target = &t.Entries[i]
			continue
		}
		entries = append(entries, e)
	}

	if target == nil {
		return t, nil
	}

	if rest != "" && target.Mode == filemode.Dir {
		sub, err := subtreeAt(t, name)
		if err != nil {
			return nil, err
		}
		newsub, err := treeDelete(ctx, s, sub, rest)
		if err != nil {
			return nil, err
		}
		if newsub != nil && len(newsub.Entries) > 0 {
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: filemode.Dir,
				Hash: newsub.Hash,
			})
		}
	} else if rest != "" {
		// path descends into a non-directory, nothing to delete.
		entries = append(entries, *target)
	}

	return writeTree(ctx, s, entries)
}

// nestTree returns a tree holding t at path, creating the intermediate
// directories.
func nestTree(ctx context.Context, s storer.EncodedObjectStorer, path string, t *object.Tree) (*object.Tree, error) {
	return treeInsert(ctx, s, nil, path, object.TreeEntry{
		Mode: filemode.Dir,
		Hash: t.Hash,
	})
}
