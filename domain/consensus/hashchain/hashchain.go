// Package hashchain implements the per-chain hash+weight+height index
// described in spec.md SS4.1: a mapping from hash to tree node, the current
// tip set, and a height roster whose per-height hash lists are kept sorted.
// There is no separate ordered (height,hash) multimap and no range-scan
// method.
//
// Grounded on the teacher's blockdag.blockNode (parent/children sets, tip
// tracking) generalized per spec.md SS9 to an arena-backed index rather than
// owning pointers, since pruning never removes nodes and indices stay
// stable for the node's lifetime.
package hashchain

import (
	"sort"
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/pkg/errors"
)

// NodeID is an arena index into HashChain.nodes. Zero is reserved to mean
// "no node" (used for a genesis node's absent parent).
type NodeID uint32

const noNode NodeID = 0

type treeNode struct {
	hash      model.Hash
	height    uint64
	weight    *model.Weight
	target    model.CompactTarget
	timestamp uint64
	parent    NodeID
	children  []NodeID
}

// HashChain owns one of the G*G chains' tree of accepted blocks.
type HashChain struct {
	chainIndex model.ChainIndex

	mu           sync.RWMutex
	nodes        []treeNode // nodes[0] is unused (noNode sentinel)
	byHash       map[model.Hash]NodeID
	tips         map[NodeID]struct{}
	heightRoster map[uint64][]model.Hash // kept sorted ascending per height

	prunedHeight       uint64
	tipsPruneInterval  uint64
	sequence           uint64
}

// New creates a HashChain seeded with a genesis node at height 0, weight 0.
func New(chainIndex model.ChainIndex, genesisHash model.Hash, genesisTimestamp uint64, genesisTarget model.CompactTarget, tipsPruneInterval uint64) *HashChain {
	hc := &HashChain{
		chainIndex:        chainIndex,
		nodes:             make([]treeNode, 1, 64), // index 0 reserved
		byHash:            make(map[model.Hash]NodeID),
		tips:              make(map[NodeID]struct{}),
		heightRoster:      make(map[uint64][]model.Hash),
		tipsPruneInterval: tipsPruneInterval,
	}
	genesis := treeNode{
		hash:      genesisHash,
		height:    0,
		weight:    model.NewWeight(0),
		target:    genesisTarget,
		timestamp: genesisTimestamp,
		parent:    noNode,
	}
	hc.nodes = append(hc.nodes, genesis)
	id := NodeID(len(hc.nodes) - 1)
	hc.byHash[genesisHash] = id
	hc.tips[id] = struct{}{}
	hc.heightRoster[0] = []model.Hash{genesisHash}
	return hc
}

// ChainIndex returns the chain this HashChain indexes.
func (hc *HashChain) ChainIndex() model.ChainIndex {
	return hc.chainIndex
}

// Sequence returns the number of successful Add calls so far. BlockFlow uses
// this to detect that a chain mutated mid-computation and retry (spec.md
// SS5).
func (hc *HashChain) Sequence() uint64 {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.sequence
}

// Add creates a new node with the given parent, wiring child/tip pointers.
// It returns model.ErrMissingParent if parentHash is unknown.
func (hc *HashChain) Add(hash model.Hash, parentHash model.Hash, timestamp uint64, target model.CompactTarget, weight *model.Weight) error {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if _, exists := hc.byHash[hash]; exists {
		return nil // idempotent: already accepted
	}

	parentID, ok := hc.byHash[parentHash]
	if !ok {
		return model.ErrMissingParent(parentHash)
	}

	parent := &hc.nodes[parentID]
	node := treeNode{
		hash:      hash,
		height:    parent.height + 1,
		weight:    weight,
		target:    target,
		timestamp: timestamp,
		parent:    parentID,
	}
	hc.nodes = append(hc.nodes, node)
	id := NodeID(len(hc.nodes) - 1)
	hc.byHash[hash] = id

	parent.children = append(parent.children, id)
	delete(hc.tips, parentID)
	hc.tips[id] = struct{}{}

	hc.insertIntoRoster(node.height, hash)
	hc.sequence++
	return nil
}

func (hc *HashChain) insertIntoRoster(height uint64, hash model.Hash) {
	roster := hc.heightRoster[height]
	i := sort.Search(len(roster), func(i int) bool { return !roster[i].Less(hash) })
	roster = append(roster, model.Hash{})
	copy(roster[i+1:], roster[i:])
	roster[i] = hash
	hc.heightRoster[height] = roster
}

func (hc *HashChain) nodeByHash(hash model.Hash) (*treeNode, error) {
	id, ok := hc.byHash[hash]
	if !ok {
		return nil, model.ErrMissingBlock(hash)
	}
	return &hc.nodes[id], nil
}

// IsTip reports whether hash is a current tip (has no accepted children).
func (hc *HashChain) IsTip(hash model.Hash) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	id, ok := hc.byHash[hash]
	if !ok {
		return false
	}
	_, isTip := hc.tips[id]
	return isTip
}

// GetHeight returns the height of hash.
func (hc *HashChain) GetHeight(hash model.Hash) (uint64, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	node, err := hc.nodeByHash(hash)
	if err != nil {
		return 0, err
	}
	return node.height, nil
}

// GetWeight returns the cumulative weight of hash.
func (hc *HashChain) GetWeight(hash model.Hash) (*model.Weight, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	node, err := hc.nodeByHash(hash)
	if err != nil {
		return nil, err
	}
	return node.weight, nil
}

// GetTarget returns the recorded compact target of hash.
func (hc *HashChain) GetTarget(hash model.Hash) (model.CompactTarget, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	node, err := hc.nodeByHash(hash)
	if err != nil {
		return 0, err
	}
	return node.target, nil
}

// GetTimestamp returns the recorded timestamp of hash.
func (hc *HashChain) GetTimestamp(hash model.Hash) (uint64, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	node, err := hc.nodeByHash(hash)
	if err != nil {
		return 0, err
	}
	return node.timestamp, nil
}

// GetParent returns the parent hash of hash, or ok=false for the genesis
// node.
func (hc *HashChain) GetParent(hash model.Hash) (parent model.Hash, ok bool, err error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	node, err := hc.nodeByHash(hash)
	if err != nil {
		return model.Hash{}, false, err
	}
	if node.parent == noNode {
		return model.Hash{}, false, nil
	}
	return hc.nodes[node.parent].hash, true, nil
}

// GetPredecessor walks parents from hash until it finds the ancestor at
// height h (inclusive of hash itself if hash.height == h).
func (hc *HashChain) GetPredecessor(hash model.Hash, h uint64) (model.Hash, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	node, err := hc.nodeByHash(hash)
	if err != nil {
		return model.Hash{}, err
	}
	if node.height < h {
		return model.Hash{}, errors.Errorf("target height %d is above %s's height %d", h, hash, node.height)
	}
	for node.height > h {
		if node.parent == noNode {
			return model.Hash{}, errors.Errorf("ran out of ancestors before reaching height %d", h)
		}
		node = &hc.nodes[node.parent]
	}
	return node.hash, nil
}

// ChainBack collects the inclusive path from hash down to (and including)
// the ancestor at height hUntil, ordered from hUntil to hash.
func (hc *HashChain) ChainBack(hash model.Hash, hUntil uint64) ([]model.Hash, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	node, err := hc.nodeByHash(hash)
	if err != nil {
		return nil, err
	}
	if node.height < hUntil {
		return nil, errors.Errorf("target height %d is above %s's height %d", hUntil, hash, node.height)
	}
	var path []model.Hash
	for {
		path = append(path, node.hash)
		if node.height == hUntil {
			break
		}
		if node.parent == noNode {
			return nil, errors.Errorf("ran out of ancestors before reaching height %d", hUntil)
		}
		node = &hc.nodes[node.parent]
	}
	// reverse into ascending-height order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// GetHashesAfter enumerates descendants of locator via BFS on child
// pointers, in height order.
func (hc *HashChain) GetHashesAfter(locator model.Hash) ([]model.Hash, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	startID, ok := hc.byHash[locator]
	if !ok {
		return nil, model.ErrMissingBlock(locator)
	}

	var result []model.Hash
	queue := append([]NodeID(nil), hc.nodes[startID].children...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, hc.nodes[id].hash)
		queue = append(queue, hc.nodes[id].children...)
	}
	return result, nil
}

// Tips returns a snapshot of the current tip set.
func (hc *HashChain) Tips() []model.Hash {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	tips := make([]model.Hash, 0, len(hc.tips))
	for id := range hc.tips {
		tips = append(tips, hc.nodes[id].hash)
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i].Less(tips[j]) })
	return tips
}

// TipsByWeightDesc returns every current tip ordered by descending weight,
// ties broken by ascending hash. BlockFlow's best-deps selection walks tips
// in this order so the first consistent candidate it finds is also the
// heaviest (spec.md SS4.5 step 2).
func (hc *HashChain) TipsByWeightDesc() []model.Hash {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	tips := make([]model.Hash, 0, len(hc.tips))
	for id := range hc.tips {
		tips = append(tips, hc.nodes[id].hash)
	}
	sort.Slice(tips, func(i, j int) bool {
		wi, wj := hc.weightOfLocked(tips[i]), hc.weightOfLocked(tips[j])
		cmp := wi.Cmp(wj)
		if cmp != 0 {
			return cmp > 0
		}
		return tips[i].Less(tips[j])
	})
	return tips
}

func (hc *HashChain) weightOfLocked(hash model.Hash) *model.Weight {
	return hc.nodes[hc.byHash[hash]].weight
}

// BestTip returns the tip with maximum weight, ties broken by smaller hash.
func (hc *HashChain) BestTip() (model.Hash, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.bestTipLocked()
}

func (hc *HashChain) bestTipLocked() (model.Hash, error) {
	if len(hc.tips) == 0 {
		return model.Hash{}, errors.New("chain has no tips")
	}
	var best *treeNode
	for id := range hc.tips {
		node := &hc.nodes[id]
		if best == nil {
			best = node
			continue
		}
		cmp := node.weight.Cmp(best.weight)
		if cmp > 0 || (cmp == 0 && node.hash.Less(best.hash)) {
			best = node
		}
	}
	return best.hash, nil
}

// Genesis returns this chain's genesis hash, its first-ever accepted node.
func (hc *HashChain) Genesis() model.Hash {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.nodes[1].hash
}

// NumHashes returns the total number of accepted nodes, including genesis.
func (hc *HashChain) NumHashes() int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.nodes) - 1
}

// AllHashes returns every accepted hash in this chain, in arena (insertion)
// order with genesis first. Used by aggregations that need to scan a whole
// chain rather than walk from a tip (e.g. MultiChain.GetHeightedBlockHeaders).
func (hc *HashChain) AllHashes() []model.Hash {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	hashes := make([]model.Hash, 0, len(hc.nodes)-1)
	for i := 1; i < len(hc.nodes); i++ {
		hashes = append(hashes, hc.nodes[i].hash)
	}
	return hashes
}

// Contains reports whether hash has been accepted into this chain.
func (hc *HashChain) Contains(hash model.Hash) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	_, ok := hc.byHash[hash]
	return ok
}

// PruneTips drops tips older than bestTipHeight-tipsPruneInterval from the
// tip set only; nodes themselves are never removed (spec.md SS4.1). It is a
// no-op unless the highest tip has grown more than tipsPruneInterval past
// the last pruned height.
func (hc *HashChain) PruneTips() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if hc.tipsPruneInterval == 0 || len(hc.tips) == 0 {
		return
	}
	best, err := hc.bestTipLocked()
	if err != nil {
		return
	}
	bestHeight := hc.nodes[hc.byHash[best]].height
	if bestHeight <= hc.prunedHeight+hc.tipsPruneInterval {
		return
	}
	cutoff := bestHeight - hc.tipsPruneInterval
	for id := range hc.tips {
		if hc.nodes[id].height < cutoff {
			delete(hc.tips, id)
		}
	}
	hc.prunedHeight = bestHeight
}
