package gitview

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/google/go-cmp/cmp"
)

// filteredHead runs the filter over the fixture and returns the filtered
// head commit.
func filteredHead(t *testing.T, s storer.Storer, filter Filter, maps *ViewMaps) *object.Commit {
	t.Helper()

	if _, err := Apply(context.Background(), s, []RefPair{{Source: "master", Target: "filtered"}}, filter, maps); err != nil {
		t.Fatal(err)
	}

	ref, err := s.Reference(plumbing.NewBranchReferenceName("filtered"))
	if err != nil {
		t.Fatal(err)
	}

	return mustGetCommit(t, s, ref.Hash())
}

// editFile commits a single-file change on top of parent.
func editFile(t *testing.T, s storer.Storer, parent *object.Commit, path, content string) *object.Commit {
	t.Helper()

	ctx := context.Background()

	blob, err := writeBlob(ctx, s, []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := treeInsert(ctx, s, mustGetTree(t, parent), path, object.TreeEntry{
		Mode: filemode.Regular,
		Hash: blob,
	})
	if err != nil {
		t.Fatal(err)
	}

	return mustCommit(t, s, tree, "edit "+path, parent.Hash)
}

func TestUnapply_roundTrip(t *testing.T) {
	s, _ := libRepo(t)

	filter, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	// no user edit: unapply must hand back the original commit untouched.
	got, err := Unapply(context.Background(), s, maps, filter, head, head)
	if err != nil {
		t.Fatal(err)
	}

	orig, _ := maps.Backward(filter, head.Hash)
	if got.Hash != orig {
		t.Errorf("round trip changed the commit: %s vs %s", got.Hash, orig)
	}
}

func TestUnapply_editScenario(t *testing.T) {
	s, commits := libRepo(t)
	ctx := context.Background()

	filter, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	edited := editFile(t, s, head, "a.txt", "world")

	got, err := Unapply(ctx, s, maps, filter, head, edited)
	if err != nil {
		t.Fatal(err)
	}

	// the new original commit carries the edit under lib/ and leaves the
	// content the filter hid untouched.
	want := map[string]string{
		"lib/a.txt":   "world",
		"other/b.txt": "bye",
		"other/c.txt": "more",
	}
	newtree := mustGetTree(t, mustGetCommit(t, s, got.Hash))
	if diff := cmp.Diff(want, treeFiles(t, newtree)); diff != "" {
		t.Errorf("unapplied tree mismatch (-want +got):\n%s", diff)
	}

	if got.NumParents() != 1 || got.ParentHashes[0] != commits[2].Hash {
		t.Errorf("parent: %v, want [%s]", got.ParentHashes, commits[2].Hash)
	}
	if got.Message != edited.Message {
		t.Errorf("message: %q, want %q", got.Message, edited.Message)
	}

	// forward filtering the unapplied commit reproduces the edited tree.
	refiltered, err := filter.Apply(ctx, &Source{Commit: got, Tree: newtree}, s)
	if err != nil {
		t.Fatal(err)
	}
	if refiltered.Hash != mustGetTree(t, edited).Hash {
		t.Errorf("refilter mismatch: %s vs %s", refiltered.Hash, mustGetTree(t, edited).Hash)
	}
}

func TestUnapply_invisibleContentPreserved(t *testing.T) {
	s, commits := libRepo(t)

	filter, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	edited := editFile(t, s, head, "a.txt", "world")

	got, err := Unapply(context.Background(), s, maps, filter, head, edited)
	if err != nil {
		t.Fatal(err)
	}

	// outside the filter projection the old and new original trees agree
	// entry for entry.
	oldtree := mustGetTree(t, commits[2])
	newtree := mustGetTree(t, mustGetCommit(t, s, got.Hash))

	oldother, err := oldtree.Tree("other")
	if err != nil {
		t.Fatal(err)
	}
	newother, err := newtree.Tree("other")
	if err != nil {
		t.Fatal(err)
	}
	if oldother.Hash != newother.Hash {
		t.Errorf("hidden subtree rewritten: %s vs %s", oldother.Hash, newother.Hash)
	}
}

func TestUnapply_deletion(t *testing.T) {
	s, _ := libRepo(t)
	ctx := context.Background()

	filter, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	tree, err := treeDelete(ctx, s, mustGetTree(t, head), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	edited := mustCommit(t, s, tree, "remove a.txt", head.Hash)

	got, err := Unapply(ctx, s, maps, filter, head, edited)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"other/b.txt": "bye",
		"other/c.txt": "more",
	}
	if diff := cmp.Diff(want, treeFiles(t, mustGetTree(t, mustGetCommit(t, s, got.Hash)))); diff != "" {
		t.Errorf("unapplied tree mismatch (-want +got):\n%s", diff)
	}
}

func TestUnapply_noKnownOrigin(t *testing.T) {
	s, _ := libRepo(t)

	filter, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}

	stray := mustCommit(t, s, mustTree(t, s, map[string]string{"x": "y"}), "stray")

	_, err = Unapply(context.Background(), s, NewViewMaps(), filter, stray, stray)
	if !errors.Is(err, ErrNoKnownOrigin) {
		t.Errorf("want ErrNoKnownOrigin, got %v", err)
	}
}

func TestUnapply_unroutableEdit(t *testing.T) {
	s, _ := libRepo(t)

	filter, err := ParseFilter(":workspace=mods/lib=(:subdir=lib)")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	// a file outside every mount has no original location.
	edited := editFile(t, s, head, "stray.txt", "lost")

	_, err = Unapply(context.Background(), s, maps, filter, head, edited)
	if !errors.Is(err, ErrUnroutableEdit) {
		t.Errorf("want ErrUnroutableEdit, got %v", err)
	}
}

func TestUnapply_infoEditsDiscarded(t *testing.T) {
	s, _ := libRepo(t)

	base, err := ParseFilter(":subdir=lib")
	if err != nil {
		t.Fatal(err)
	}
	filter := NewChain(base, NewInfo("", []InfoField{
		{Key: "commit", Value: "#sha1"},
		{Key: "src", Value: "master"},
	}))

	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	// tampering with the provenance file is not an edit to propagate.
	edited := editFile(t, s, head, InfoFileName, "commit: forged\n")

	got, err := Unapply(context.Background(), s, maps, filter, head, edited)
	if err != nil {
		t.Fatal(err)
	}

	orig, _ := maps.Backward(filter, head.Hash)
	if got.Hash != orig {
		t.Errorf("discarded edit should return the original commit, got %s want %s", got.Hash, orig)
	}
}

func TestUnapply_workspaceRouting(t *testing.T) {
	s, _ := libRepo(t)
	ctx := context.Background()

	filter, err := ParseFilter(":workspace=mods/lib=(:subdir=lib);extra=(:subdir=other)")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	edited := editFile(t, s, head, "extra/b.txt", "changed")

	got, err := Unapply(ctx, s, maps, filter, head, edited)
	if err != nil {
		t.Fatal(err)
	}

	files := treeFiles(t, mustGetTree(t, mustGetCommit(t, s, got.Hash)))
	if files["other/b.txt"] != "changed" {
		t.Errorf("workspace edit not routed back, files: %v", files)
	}
	if files["lib/a.txt"] != "hello world" {
		t.Errorf("unrelated mount content altered, files: %v", files)
	}
}

func TestCheckChangesAgainstFilter(t *testing.T) {
	s, _ := libRepo(t)
	ctx := context.Background()

	filter, err := ParseFilter(":workspace=mods/lib=(:subdir=lib)")
	if err != nil {
		t.Fatal(err)
	}
	maps := NewViewMaps()
	head := filteredHead(t, s, filter, maps)

	good := editFile(t, s, head, "mods/lib/a.txt", "fine")
	bad := editFile(t, s, head, "stray.txt", "lost")

	headtree := mustGetTree(t, head)

	changes, err := object.DiffTreeContext(ctx, headtree, mustGetTree(t, good))
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckChangesAgainstFilter(changes, filter).ToError(); err != nil {
		t.Errorf("visible change flagged: %v", err)
	}

	changes, err = object.DiffTreeContext(ctx, headtree, mustGetTree(t, bad))
	if err != nil {
		t.Fatal(err)
	}
	result := CheckChangesAgainstFilter(changes, filter)
	if err := result.ToError(); err == nil {
		t.Error("stray change not flagged")
	}
	if len(result.Errors) != 1 || result.Errors[0].ToPath != "stray.txt" {
		t.Errorf("unexpected check result: %+v", result.Errors)
	}
}
