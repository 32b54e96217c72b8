package gitview

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type empty = struct{}

// HashSet is simply a map from [plumbing.Hash] to [empty].
type HashSet = map[plumbing.Hash]empty

// NewHashSet creates a new set of Hash.
func NewHashSet(hashes ...plumbing.Hash) HashSet {
	result := make(HashSet)

	for _, v := range hashes {
		result[v] = empty{}
	}

	return result
}

// NewHashSetFromCommits collects the hashes of the commits into a [HashSet].
func NewHashSetFromCommits(commits []*object.Commit) HashSet {
	result := make(HashSet)
	for _, c := range commits {
		if c == nil {
			continue
		}

		result[c.Hash] = empty{}
	}

	return result
}

// CombineHashSets merges the input sets into a newly allocated [HashSet].
func CombineHashSets(sets ...HashSet) HashSet {
	result := make(HashSet)

	for _, s := range sets {
		for k := range s {
			result[k] = empty{}
		}
	}

	return result
}
