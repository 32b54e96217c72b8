package gitview

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Unapply reconstructs an original-history commit from a commit a user made
// in filtered coordinates.
//
// oldFiltered must have been produced by [Apply] under the same filter, so
// the backward map knows its original commit; otherwise [ErrNoKnownOrigin]
// is returned. newFiltered is the user's commit on top of oldFiltered. The
// edit between the two filtered trees is translated back to original
// coordinates through the filter and overlaid on the old original tree:
// paths the filter never exposed are left untouched, and edits the filter
// cannot route back fail with [ErrUnroutableEdit] rather than being guessed
// at.
//
// The returned commit has the old original commit as its sole parent and
// newFiltered's author, committer and message. When the edit is empty (or is
// entirely discarded, such as edits to provenance files), the old original
// commit is returned unchanged. Unapply writes objects but never moves
// references; publishing the result is the caller's job.
func Unapply(
	ctx context.Context,
	s storer.Storer,
	maps *ViewMaps,
	filter Filter,
	oldFiltered *object.Commit,
	newFiltered *object.Commit,
) (*object.Commit, error) {
	if s == nil {
		return nil, ErrNilStorage
	}
	if filter == nil {
		return nil, ErrEmptyFilter
	}

	orighash, found := maps.Backward(filter, oldFiltered.Hash)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNoKnownOrigin, oldFiltered.Hash)
	}

	oldOriginal, err := object.GetCommit(s, orighash)
	if err != nil {
		return nil, fmt.Errorf("failed to read original commit %s: %w", orighash, err)
	}

	newtree, err := unapplyTree(ctx, s, filter, oldFiltered, newFiltered, oldOriginal)
	if err != nil {
		return nil, err
	}

	basetree, err := oldOriginal.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain original tree: %w", err)
	}
	if newtree.Hash == basetree.Hash {
		logger.Debug("no routable edit, reuse original commit", "commit", oldOriginal.Hash)

		return oldOriginal, nil
	}

	newcommit := &object.Commit{
		TreeHash:     newtree.Hash,
		Author:       newFiltered.Author,
		Committer:    newFiltered.Committer,
		Message:      newFiltered.Message,
		ParentHashes: []plumbing.Hash{oldOriginal.Hash},
	}

	if err := updateHashAndSave(ctx, newcommit, s); err != nil {
		return nil, errorf(err, "failed to save unapplied commit: %w", err)
	}

	logger.Info("unapplied commit", "filtered", newFiltered.Hash, "original", newcommit.Hash)

	maps.RecordForward(filter, newcommit.Hash, newFiltered.Hash)
	maps.RecordBackward(filter, newFiltered.Hash, newcommit.Hash)

	return newcommit, nil
}

// unapplyTree computes the three-way overlay: the structural difference
// between the two filtered trees, routed back to original coordinates and
// applied on top of the original base tree.
func unapplyTree(
	ctx context.Context,
	s storer.Storer,
	filter Filter,
	oldFiltered, newFiltered *object.Commit,
	base *object.Commit,
) (*object.Tree, error) {
	oldtree, err := oldFiltered.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain old filtered tree: %w", err)
	}
	newtree, err := newFiltered.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain new filtered tree: %w", err)
	}
	result, err := base.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain original tree: %w", err)
	}

	changes, err := object.DiffTreeContext(ctx, oldtree, newtree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff filtered trees: %w", err)
	}

	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("failed to classify change: %w", err)
		}

		switch action {
		case merkletrie.Insert, merkletrie.Modify:
			orig, discard, err := filter.InvertPath(ch.To.Name)
			if err != nil {
				return nil, err
			}
			if discard {
				logger.Debug("discarding edit", "path", ch.To.Name)

				continue
			}
			result, err = treeInsert(ctx, s, result, orig, object.TreeEntry{
				Mode: ch.To.TreeEntry.Mode,
				Hash: ch.To.TreeEntry.Hash,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to overlay %s: %w", orig, err)
			}
		case merkletrie.Delete:
			orig, discard, err := filter.InvertPath(ch.From.Name)
			if err != nil {
				return nil, err
			}
			if discard {
				continue
			}
			result, err = treeDelete(ctx, s, result, orig)
			if err != nil {
				return nil, fmt.Errorf("failed to remove %s: %w", orig, err)
			}
		}
	}

	return result, nil
}
