// Package headerchain implements spec.md SS4.2: a HashChain plus header
// storage and the DigiShield-style difficulty-adjustment algorithm.
//
// Grounded on the teacher's blockdag/difficulty.go, whose median-timestamp
// windowing and big-integer clamp-and-scale shape this package follows;
// the teacher's version windows over GHOSTDAG blue sets, which this
// simpler (non-GHOSTDAG) BlockDAG has no equivalent of, so the window here
// walks the single parent chain instead, exactly as spec.md SS4.2
// prescribes.
package headerchain

import (
	"math/big"
	"sort"
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/hashchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/pkg/errors"
)

// DifficultyParams configures the median-time difficulty-adjustment
// algorithm (spec.md SS6 consensus.* options).
type DifficultyParams struct {
	MedianTimeInterval uint64 // window size, in blocks
	ExpectedTimeSpan   uint64 // in the same time unit as header timestamps (ms)
	TimeSpanMin        uint64
	TimeSpanMax        uint64
	MaxTarget          model.CompactTarget
}

// HeaderChain wraps a HashChain with header-body storage and difficulty
// adjustment.
type HeaderChain struct {
	*hashchain.HashChain

	params DifficultyParams

	mu      sync.RWMutex
	headers map[model.Hash]*model.BlockHeader
}

// New creates a HeaderChain rooted at a genesis header.
func New(chainIndex model.ChainIndex, genesisHeader *model.BlockHeader, tipsPruneInterval uint64, params DifficultyParams) *HeaderChain {
	genesisHash := genesisHeader.Hash()
	hc := hashchain.New(chainIndex, genesisHash, genesisHeader.Timestamp, genesisHeader.Target, tipsPruneInterval)
	headerChain := &HeaderChain{
		HashChain: hc,
		params:    params,
		headers:   make(map[model.Hash]*model.BlockHeader),
	}
	headerChain.headers[genesisHash] = genesisHeader
	return headerChain
}

// GetHeader returns the stored header for hash.
func (hc *HeaderChain) GetHeader(hash model.Hash) (*model.BlockHeader, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	header, ok := hc.headers[hash]
	if !ok {
		return nil, model.ErrMissingBlock(hash)
	}
	return header, nil
}

// Add validates header's target against NextTargetAfter(parent) and, if it
// matches, admits it into the underlying HashChain and stores its body.
func (hc *HeaderChain) Add(header *model.BlockHeader) error {
	parentHash, err := header.DirectParent()
	if err != nil {
		return model.NewKindedError(model.KindValidation, "header has no direct parent", err)
	}

	if !hc.HashChain.Contains(parentHash) {
		return model.ErrMissingParent(parentHash)
	}

	expectedTarget, err := hc.NextTargetAfter(parentHash)
	if err != nil {
		return err
	}
	if header.Target != expectedTarget {
		return model.NewKindedError(model.KindValidation,
			"header target does not match expected difficulty", nil)
	}

	parentWeight, err := hc.HashChain.GetWeight(parentHash)
	if err != nil {
		return err
	}
	weight := parentWeight.Add(model.TargetToWork(header.Target))

	hash := header.Hash()
	if err := hc.HashChain.Add(hash, parentHash, header.Timestamp, header.Target, weight); err != nil {
		return err
	}

	hc.mu.Lock()
	hc.headers[hash] = header
	hc.mu.Unlock()
	return nil
}

// NextTargetAfter computes the target a block built on top of parentHash
// must carry, per the DigiShield-style algorithm of spec.md SS4.2.
func (hc *HeaderChain) NextTargetAfter(parentHash model.Hash) (model.CompactTarget, error) {
	parentTarget, err := hc.HashChain.GetTarget(parentHash)
	if err != nil {
		return 0, err
	}

	m1, ok1 := hc.medianTimestamp(parentHash, hc.params.MedianTimeInterval)
	if !ok1 {
		return parentTarget, nil
	}

	grandparent, hasParent, err := hc.HashChain.GetParent(parentHash)
	if err != nil {
		return 0, err
	}
	if !hasParent {
		return parentTarget, nil
	}
	m2, ok2 := hc.medianTimestamp(grandparent, hc.params.MedianTimeInterval)
	if !ok2 {
		return parentTarget, nil
	}

	expected := int64(hc.params.ExpectedTimeSpan)
	delta := int64(m1) - int64(m2) - expected
	timeSpan := expected + delta/4

	if timeSpan < int64(hc.params.TimeSpanMin) {
		timeSpan = int64(hc.params.TimeSpanMin)
	}
	if timeSpan > int64(hc.params.TimeSpanMax) {
		timeSpan = int64(hc.params.TimeSpanMax)
	}

	parentTargetBig := model.CompactToBig(parentTarget)
	newTargetBig := new(big.Int).Mul(parentTargetBig, big.NewInt(timeSpan))
	newTargetBig.Div(newTargetBig, big.NewInt(expected))

	maxTargetBig := model.CompactToBig(hc.params.MaxTarget)
	if hc.params.MaxTarget != 0 && newTargetBig.Cmp(maxTargetBig) > 0 {
		newTargetBig = maxTargetBig
	}

	return model.BigToCompact(newTargetBig), nil
}

// medianTimestamp returns the timestamp at position window/2 after sorting
// the timestamps of the last `window` blocks up the parent chain from and
// including startHash. ok is false if the chain is shorter than window.
func (hc *HeaderChain) medianTimestamp(startHash model.Hash, window uint64) (median uint64, ok bool) {
	if window == 0 {
		return 0, false
	}
	timestamps := make([]uint64, 0, window)
	current := startHash
	for uint64(len(timestamps)) < window {
		ts, err := hc.HashChain.GetTimestamp(current)
		if err != nil {
			return 0, false
		}
		timestamps = append(timestamps, ts)

		parent, hasParent, err := hc.HashChain.GetParent(current)
		if err != nil {
			return 0, false
		}
		if !hasParent {
			if uint64(len(timestamps)) < window {
				return 0, false
			}
			break
		}
		current = parent
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[window/2], true
}

// HeadersInTimeRange returns every stored header whose Timestamp falls in
// [from, to], in no particular order. Grounded on the need MultiChain's
// getHeightedBlockHeaders aggregation (spec.md SS4.4) has to scan a whole
// chain rather than walk from a single tip.
func (hc *HeaderChain) HeadersInTimeRange(from, to uint64) []*model.BlockHeader {
	hashes := hc.HashChain.AllHashes()

	hc.mu.RLock()
	defer hc.mu.RUnlock()
	var result []*model.BlockHeader
	for _, hash := range hashes {
		header, ok := hc.headers[hash]
		if !ok {
			continue
		}
		if header.Timestamp >= from && header.Timestamp <= to {
			result = append(result, header)
		}
	}
	return result
}

// ValidateGenesisTarget checks that a devnet/testnet genesis target does not
// exceed the configured maximum mining target.
func (p DifficultyParams) ValidateGenesisTarget(target model.CompactTarget) error {
	if p.MaxTarget == 0 {
		return nil
	}
	if model.CompactToBig(target).Cmp(model.CompactToBig(p.MaxTarget)) > 0 {
		return errors.New("genesis target exceeds configured maximum mining target")
	}
	return nil
}
