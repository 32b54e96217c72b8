package gitview

import (
	"github.com/go-git/go-git/v5/plumbing"
)

// ViewMaps is the bidirectional cache linking original and filtered commit
// ids. Entries are keyed by the filter's canonical text ([Filter.Spec]), so
// results produced under different filters never collide.
//
// Entries are append-only: a commit once mapped under a filter identity is
// never remapped to a different result. A ViewMaps is owned by a single
// [Apply] or [Unapply] call at a time; it is not safe for concurrent
// mutation.
type ViewMaps struct {
	forward  map[string]map[plumbing.Hash]plumbing.Hash
	backward map[string]map[plumbing.Hash]plumbing.Hash
}

// NewViewMaps creates an empty [ViewMaps].
func NewViewMaps() *ViewMaps {
	return &ViewMaps{
		forward:  make(map[string]map[plumbing.Hash]plumbing.Hash),
		backward: make(map[string]map[plumbing.Hash]plumbing.Hash),
	}
}

// Forward returns the filtered commit the original commit maps to under
// filter.
func (m *ViewMaps) Forward(filter Filter, original plumbing.Hash) (plumbing.Hash, bool) {
	h, found := m.forward[filter.Spec()][original]

	return h, found
}

// Backward returns the original commit the filtered commit was produced
// from under filter.
func (m *ViewMaps) Backward(filter Filter, filtered plumbing.Hash) (plumbing.Hash, bool) {
	h, found := m.backward[filter.Spec()][filtered]

	return h, found
}

// RecordForward stores original -> filtered under filter. An existing entry
// is never overwritten; recording a conflicting value is logged and ignored.
func (m *ViewMaps) RecordForward(filter Filter, original, filtered plumbing.Hash) {
	m.record(m.forward, filter.Spec(), original, filtered)
}

// RecordBackward stores filtered -> original under filter. An existing entry
// is never overwritten.
func (m *ViewMaps) RecordBackward(filter Filter, filtered, original plumbing.Hash) {
	m.record(m.backward, filter.Spec(), filtered, original)
}

func (m *ViewMaps) record(direction map[string]map[plumbing.Hash]plumbing.Hash, spec string, k, v plumbing.Hash) {
	byfilter, found := direction[spec]
	if !found {
		byfilter = make(map[plumbing.Hash]plumbing.Hash)
		direction[spec] = byfilter
	}

	if prev, found := byfilter[k]; found {
		if prev != v {
			logger.Warn("refusing to remap cached commit", "key", k, "cached", prev, "new", v)
		}

		return
	}

	byfilter[k] = v
}

// forwardKeys returns the set of original commits already mapped under
// filter, used to stop graph traversal at cached history.
func (m *ViewMaps) forwardKeys(filter Filter) HashSet {
	byfilter := m.forward[filter.Spec()]

	result := make(HashSet, len(byfilter))
	for k := range byfilter {
		result[k] = empty{}
	}

	return result
}
