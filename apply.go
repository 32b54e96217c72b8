package gitview

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RefPair names a source reference to filter and the target reference to
// advance to the filtered head.
type RefPair struct {
	Source string
	Target string
}

// Apply walks the commit graph backward from the source of each pair,
// applies the filter to every reachable commit's tree, and advances the
// pair's target reference to the filtered head.
//
// Traversal stops descending at commits already present in maps under the
// filter's identity and at [Cutoff] boundaries; a stopped-at commit that has
// no mapping yet is rebuilt as a root of the filtered history. A
// single-parent commit whose filtered tree equals its filtered parent's tree
// creates no new commit: the original maps to the parent's filtered commit
// instead. Root commits and merge commits are never elided.
//
// New commits copy the original author, committer and message, with any GPG
// signature dropped. All pairs share maps, so shared ancestry is filtered
// once.
//
// Apply returns the number of target references updated. A source that fails
// to resolve aborts its pair only; remaining pairs still run, and the
// resolution failures are joined into the returned error.
func Apply(ctx context.Context, s storer.Storer, pairs []RefPair, filter Filter, maps *ViewMaps) (int, error) {
	if s == nil {
		return 0, ErrNilStorage
	}
	if filter == nil {
		return 0, ErrEmptyFilter
	}
	if maps == nil {
		maps = NewViewMaps()
	}

	cutoffs, err := cutoffRoots(ctx, s, filter)
	if err != nil {
		return 0, err
	}

	updated := 0
	var errs []error

	for _, pair := range pairs {
		headhash, err := ResolveCommit(s, pair.Source)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", pair.Source, err))

			continue
		}

		if err := applyToHead(ctx, s, headhash, filter, maps, cutoffs); err != nil {
			return updated, err
		}

		filteredhead, found := maps.Forward(filter, headhash)
		if !found {
			return updated, fmt.Errorf("no filtered commit produced for %s", pair.Source)
		}

		if err := UpdateRef(s, pair.Target, filteredhead); err != nil {
			return updated, err
		}

		logger.Info("advanced target", "target", pair.Target, "commit", filteredhead)
		updated++
	}

	return updated, errors.Join(errs...)
}

// applyToHead filters every commit reachable from head that is not already
// mapped, in dependency order.
func applyToHead(
	ctx context.Context,
	s storer.Storer,
	head plumbing.Hash,
	filter Filter,
	maps *ViewMaps,
	cutoffs HashSet,
) error {
	headcommit, err := object.GetCommit(s, head)
	if err != nil {
		return fmt.Errorf("failed to read commit %s: %w", head, err)
	}

	stop := CombineHashSets(maps.forwardKeys(filter), cutoffs)

	path, err := GetDFSPath(ctx, headcommit, stop)
	if err != nil {
		return err
	}

	n := len(path)

	for i, c := range path {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, found := maps.Forward(filter, c.Hash); found {
			continue
		}

		tree, err := c.Tree()
		if err != nil {
			return fmt.Errorf("failed to obtain tree for commit %s: %w", c.Hash, err)
		}

		newtree, err := filter.Apply(ctx, &Source{Commit: c, Tree: tree}, s)
		if err != nil {
			return errorf(err, "failed to filter tree of %s: %w", c.Hash, err)
		}

		// remap parents, keeping order and only the first occurrence of
		// duplicates. A parent without a mapping sits beyond a cutoff
		// boundary and is dropped, making this commit a filtered root.
		parents := make([]plumbing.Hash, 0, c.NumParents())
		seen := NewHashSet()
	addparentloop:
		for _, p := range c.ParentHashes {
			newparent, found := maps.Forward(filter, p)
			if !found {
				if _, atcutoff := cutoffs[p]; !atcutoff {
					logger.Warn("parent has no filtered counterpart", "commit", c.Hash, "parent", p)
				}

				continue addparentloop
			}
			if _, dup := seen[newparent]; dup {
				continue addparentloop
			}
			parents = append(parents, newparent)
			seen[newparent] = empty{}
		}

		// no-op elision: single-parent commits that change nothing visible
		// reuse the parent's filtered commit.
		if c.NumParents() == 1 && len(parents) == 1 {
			parentcommit, err := object.GetCommit(s, parents[0])
			if err != nil {
				return fmt.Errorf("failed to read filtered parent %s: %w", parents[0], err)
			}
			if parentcommit.TreeHash == newtree.Hash {
				logger.Debug("reuse parent commit", "id", i, "total", n, "hash", c.Hash, "commit", parents[0])
				maps.RecordForward(filter, c.Hash, parents[0])

				continue
			}
		}

		newcommit := &object.Commit{
			TreeHash:     newtree.Hash,
			Author:       c.Author,
			Committer:    c.Committer,
			Message:      c.Message,
			ParentHashes: parents,
		}

		if err := updateHashAndSave(ctx, newcommit, s); err != nil {
			return errorf(err, "failed to save commit for %s: %w", c.Hash, err)
		}

		logger.Debug("processing commit", "id", i, "total", n, "hash", c.Hash, "newcommit", newcommit.Hash)

		maps.RecordForward(filter, c.Hash, newcommit.Hash)
		maps.RecordBackward(filter, newcommit.Hash, c.Hash)
	}

	return nil
}
