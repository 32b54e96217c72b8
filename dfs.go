package gitview

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type dfsBuilderNode struct {
	data      *object.Commit
	nparent   int
	nextvisit int
}

type dfsBuilder struct {
	seen  map[plumbing.Hash]empty
	stack []*dfsBuilderNode
}

func newDFSBuilder() *dfsBuilder {
	return &dfsBuilder{
		stack: make([]*dfsBuilderNode, 0),
		seen:  make(map[plumbing.Hash]empty),
	}
}

func (gb *dfsBuilder) add(v *object.Commit) {
	hash := v.Hash
	if _, seen := gb.seen[hash]; seen {
		return
	}

	gb.seen[hash] = empty{}
	gb.stack = append(gb.stack, &dfsBuilderNode{
		data:      v,
		nparent:   v.NumParents(),
		nextvisit: 0,
	})
}

func (gb *dfsBuilder) pop() error {
	if len(gb.stack) == 0 {
		return fmt.Errorf("failed to pop empty stack")
	}

	gb.stack = gb.stack[:len(gb.stack)-1]

	return nil
}

func (gb *dfsBuilder) top() *dfsBuilderNode {
	if len(gb.stack) == 0 {
		return nil
	}

	return gb.stack[len(gb.stack)-1]
}

// GetDFSPath gets a deterministic depth first search path from a head commit.
// The returned slice is in reverse topological order: every commit appears
// after all of its parents that are in the slice, with the head commit last.
// The search always visits the first parent, then the second, and so on.
//
// roots can optionally be set so the search stops descending when one of
// those commits is seen; the commit itself still appears in the path, its
// ancestors do not.
func GetDFSPath(
	ctx context.Context,
	head *object.Commit,
	roots HashSet,
) ([]*object.Commit, error) {
	result := make([]*object.Commit, 0)
	gb := newDFSBuilder()

	gb.add(head)

	if roots == nil {
		roots = make(HashSet)
	}

addloop:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		current := gb.top()

		if current == nil {
			break addloop
		}

		_, isroot := roots[current.data.Hash]
		switch {
		case isroot, current.nextvisit == current.nparent:
			result = append(result, current.data)
			if err := gb.pop(); err != nil {
				return nil, err
			}
		default:
			p, err := current.data.Parent(current.nextvisit)
			if err != nil {
				return nil, fmt.Errorf(
					"cannot get parent %d for %s: %w",
					current.nextvisit,
					current.data.Hash.String(),
					err)
			}
			current.nextvisit += 1
			gb.add(p)
		}
	}

	return result, nil
}
