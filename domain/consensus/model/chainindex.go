package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// GroupIndex identifies one of the G groups a chain endpoint belongs to.
type GroupIndex int

// ChainIndex is the ordered pair (From, To) of groups identifying one of the
// G*G chains in the BlockDAG. Chain (from,to) carries blocks mined by
// group `from`, rewarding an address in group `to`.
type ChainIndex struct {
	From GroupIndex
	To   GroupIndex
}

// String renders the chain index as "(from,to)".
func (c ChainIndex) String() string {
	return fmt.Sprintf("(%d,%d)", c.From, c.To)
}

// FlattenedIndex returns the position of c in the row-major G*G chain array,
// used to index MultiChain's dense chain table.
func (c ChainIndex) FlattenedIndex(groups int) int {
	return int(c.From)*groups + int(c.To)
}

// ChainIndexFromFlattened is the inverse of FlattenedIndex.
func ChainIndexFromFlattened(i, groups int) ChainIndex {
	return ChainIndex{From: GroupIndex(i / groups), To: GroupIndex(i % groups)}
}

// NumChains returns G*G, the total number of chains for the given group count.
func NumChains(groups int) int {
	return groups * groups
}

// NumDeps returns 2*G-1, the number of dependency slots recorded on every
// block header for a DAG with the given group count.
func NumDeps(groups int) int {
	return 2*groups - 1
}

// ValidateGroupCount rejects group counts that cannot form a valid BlockDAG.
func ValidateGroupCount(groups int) error {
	if groups <= 0 {
		return errors.Errorf("groups must be positive, got %d", groups)
	}
	return nil
}

// DepChainIndex maps a slot in the 2*G-1 dependency vector of a block on
// chain `self` to the chain whose tip it references, and reports whether
// that slot is the block's own direct-parent slot (always the last one).
//
// Slots [0, G-1) are incoming-dep hashes: the tip of chain (g, self.From)
// for every group g != self.From, in ascending g order. Slots [G-1, 2G-2)
// are outgoing-dep hashes: the tip of chain (self.From, g) for every group
// g != self.To, in ascending g order. Slot 2G-2 is the direct parent, the
// tip of chain (self.From, self.To) itself.
func DepChainIndex(self ChainIndex, groups, slot int) (dep ChainIndex, isDirectParent bool) {
	incomingCount := groups - 1
	switch {
	case slot < incomingCount:
		count := 0
		for g := 0; g < groups; g++ {
			if GroupIndex(g) == self.From {
				continue
			}
			if count == slot {
				return ChainIndex{From: GroupIndex(g), To: self.From}, false
			}
			count++
		}
	case slot < 2*incomingCount:
		outgoingSlot := slot - incomingCount
		count := 0
		for g := 0; g < groups; g++ {
			if GroupIndex(g) == self.To {
				continue
			}
			if count == outgoingSlot {
				return ChainIndex{From: self.From, To: GroupIndex(g)}, false
			}
			count++
		}
	}
	return self, true
}
