package gitview

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/memory"
)

func testSignature() object.Signature {
	return object.Signature{
		Name:  "A U Thor",
		Email: "author@example.com",
		When:  time.Unix(1234567890, 0).UTC(),
	}
}

// mustTree builds a tree from path -> content and stores it in s.
func mustTree(t *testing.T, s storer.EncodedObjectStorer, files map[string]string) *object.Tree {
	t.Helper()

	ctx := context.Background()

	tree, err := emptyTree(ctx, s)
	if err != nil {
		t.Fatal(err)
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		blob, err := writeBlob(ctx, s, []byte(files[p]))
		if err != nil {
			t.Fatal(err)
		}
		tree, err = treeInsert(ctx, s, tree, p, object.TreeEntry{
			Mode: filemode.Regular,
			Hash: blob,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	return tree
}

// mustCommit stores a commit with the given tree and parents and returns it
// loaded from s.
func mustCommit(t *testing.T, s storer.EncodedObjectStorer, tree *object.Tree, msg string, parents ...plumbing.Hash) *object.Commit {
	t.Helper()

	sig := testSignature()
	c := &object.Commit{
		TreeHash:     tree.Hash,
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		ParentHashes: parents,
	}

	if err := updateHashAndSave(context.Background(), c, s); err != nil {
		t.Fatal(err)
	}

	loaded, err := object.GetCommit(s, c.Hash)
	if err != nil {
		t.Fatal(err)
	}

	return loaded
}

// treeFiles flattens a tree into path -> content.
func treeFiles(t *testing.T, tree *object.Tree) map[string]string {
	t.Helper()

	result := make(map[string]string)

	err := tree.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		result[f.Name] = content

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	return result
}

func mustGetCommit(t *testing.T, s storer.EncodedObjectStorer, h plumbing.Hash) *object.Commit {
	t.Helper()

	c, err := object.GetCommit(s, h)
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func mustGetTree(t *testing.T, c *object.Commit) *object.Tree {
	t.Helper()

	tree, err := c.Tree()
	if err != nil {
		t.Fatal(err)
	}

	return tree
}

// libRepo is the fixture most tests share: a three commit history on
// refs/heads/master in a fresh in-memory storage.
//
//	c1: lib/a.txt=hello, other/b.txt=bye
//	c2: touches only other/c.txt (invisible to :subdir=lib)
//	c3: lib/a.txt=hello world
func libRepo(t *testing.T) (*memory.Storage, [3]*object.Commit) {
	t.Helper()

	s := memory.NewStorage()

	t1 := mustTree(t, s, map[string]string{
		"lib/a.txt":   "hello",
		"other/b.txt": "bye",
	})
	c1 := mustCommit(t, s, t1, "add lib and other")

	t2 := mustTree(t, s, map[string]string{
		"lib/a.txt":   "hello",
		"other/b.txt": "bye",
		"other/c.txt": "more",
	})
	c2 := mustCommit(t, s, t2, "touch other only", c1.Hash)

	t3 := mustTree(t, s, map[string]string{
		"lib/a.txt":   "hello world",
		"other/b.txt": "bye",
		"other/c.txt": "more",
	})
	c3 := mustCommit(t, s, t3, "update lib", c2.Hash)

	if err := s.SetReference(plumbing.NewHashReference("refs/heads/master", c3.Hash)); err != nil {
		t.Fatal(err)
	}

	return s, [3]*object.Commit{c1, c2, c3}
}
