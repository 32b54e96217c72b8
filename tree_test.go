package gitview

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/google/go-cmp/cmp"
)

func TestTreeInsertDelete(t *testing.T) {
	s := memory.NewStorage()
	ctx := context.Background()

	tree := mustTree(t, s, map[string]string{"a/b/c.txt": "deep", "top.txt": "top"})

	blob, err := writeBlob(ctx, s, []byte("new"))
	if err != nil {
		t.Fatal(err)
	}

	tree, err = treeInsert(ctx, s, tree, "a/d.txt", object.TreeEntry{Mode: filemode.Regular, Hash: blob})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"a/b/c.txt": "deep",
		"a/d.txt":   "new",
		"top.txt":   "top",
	}
	if diff := cmp.Diff(want, treeFiles(t, tree)); diff != "" {
		t.Errorf("after insert (-want +got):\n%s", diff)
	}

	// deleting the only file of a directory prunes the directory.
	tree, err = treeDelete(ctx, s, tree, "a/b/c.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.FindEntry("a/b"); err == nil {
		t.Error("empty directory a/b not pruned")
	}

	// deleting a path that doesn't exist is a no-op.
	same, err := treeDelete(ctx, s, tree, "a/missing.txt")
	if err != nil {
		t.Fatal(err)
	}
	if same.Hash != tree.Hash {
		t.Errorf("no-op delete changed the tree: %s vs %s", same.Hash, tree.Hash)
	}
}

func TestWriteTree_deterministicOrder(t *testing.T) {
	s := memory.NewStorage()

	ctx := context.Background()

	insert := func(paths []string) *object.Tree {
		tree, err := emptyTree(ctx, s)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range paths {
			blob, err := writeBlob(ctx, s, []byte(p))
			if err != nil {
				t.Fatal(err)
			}
			tree, err = treeInsert(ctx, s, tree, p, object.TreeEntry{Mode: filemode.Regular, Hash: blob})
			if err != nil {
				t.Fatal(err)
			}
		}
		return tree
	}

	// same content inserted in different orders hashes identically.
	a := insert([]string{"x", "y/z", "m/n"})
	b := insert([]string{"m/n", "x", "y/z"})

	if a.Hash != b.Hash {
		t.Errorf("tree hash depends on insertion order: %s vs %s", a.Hash, b.Hash)
	}
}

func TestGetHash_matchesStoredHash(t *testing.T) {
	s := memory.NewStorage()

	tree := mustTree(t, s, map[string]string{"a.txt": "hello"})
	c := &object.Commit{
		TreeHash:  tree.Hash,
		Author:    testSignature(),
		Committer: testSignature(),
		Message:   "x",
	}

	h, err := GetHash(c)
	if err != nil {
		t.Fatal(err)
	}

	if err := updateHashAndSave(context.Background(), c, s); err != nil {
		t.Fatal(err)
	}
	if *h != c.Hash {
		t.Errorf("precomputed hash %s differs from stored %s", *h, c.Hash)
	}
}
