// Package blockflow implements spec.md SS4.5: cross-chain best-view
// assembly. For a chain this broker owns, it picks a consistent set of
// 2*G-1 dependency hashes greedily: the best tip of the chain itself, then,
// slot by slot, the heaviest tip consistent with every dep already chosen.
// It does not search all consistent combinations for the one with the
// largest total weight, and applies no tie-break between whole vectors.
// It also exposes sync
// locators/inventories for the (out-of-scope) sync protocol to drive off
// of, and surfaces MissingBlock rather than crashing when a prerequisite
// hash is not yet known.
//
// Grounded on the teacher's netsync block-locator shape for
// GetSyncLocators/GetSyncInventories (sparse exponentially spaced
// ancestors, then a linear catch-up walk), generalized from a single chain
// to the G*G array multichain.MultiChain owns. The best-deps consistency
// search has no teacher analogue (kaspad's GHOSTDAG has no cross-chain
// dependency vector); it follows spec.md SS4.5's algorithm directly,
// concurrent per-chain sequence snapshots taken with golang.org/x/sync's
// errgroup per spec.md SS5's "read a consistent snapshot, retry on mutation"
// concurrency model.
package blockflow

import (
	"context"
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/consensus/multichain"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const maxBestDepsAttempts = 8

// BlockFlow assembles a consistent multi-chain view over a MultiChain.
type BlockFlow struct {
	multiChain *multichain.MultiChain
	groups     int
}

// New creates a BlockFlow over multiChain.
func New(multiChain *multichain.MultiChain) *BlockFlow {
	return &BlockFlow{
		multiChain: multiChain,
		groups:     multiChain.BrokerConfig().Groups,
	}
}

// GetBestDeps computes the deterministic best deps vector for a block to be
// mined on chain self, per spec.md SS4.5. It retries if a touched chain
// mutates mid-computation, bounded by maxBestDepsAttempts.
func (bf *BlockFlow) GetBestDeps(self model.ChainIndex) ([]model.Hash, error) {
	touched := bf.touchedChains(self)

	var lastErr error
	for attempt := 0; attempt < maxBestDepsAttempts; attempt++ {
		before, err := bf.snapshotSequences(touched)
		if err != nil {
			return nil, err
		}

		deps, err := bf.computeBestDeps(self)
		if err != nil {
			lastErr = err
			if _, missing := err.(*missingBlockRetry); !missing {
				return nil, err
			}
		} else {
			after, err := bf.snapshotSequences(touched)
			if err != nil {
				return nil, err
			}
			if sequencesEqual(before, after) {
				return deps, nil
			}
			log.Debugf("GetBestDeps(%s): chain sequence advanced mid-computation on attempt %d, retrying", self, attempt)
		}
	}
	if lastErr != nil {
		if mbr, ok := lastErr.(*missingBlockRetry); ok {
			return nil, model.NewKindedError(model.KindMissingDependency,
				"no consistent best-deps selection found before the retry budget was exhausted", mbr.cause)
		}
		return nil, lastErr
	}
	return nil, errors.Errorf("GetBestDeps(%s): no stable snapshot after %d attempts", self, maxBestDepsAttempts)
}

// missingBlockRetry marks an error as transient: the caller should retry
// once chains have had a chance to sync the missing prerequisite in.
type missingBlockRetry struct{ cause error }

func (e *missingBlockRetry) Error() string { return e.cause.Error() }
func (e *missingBlockRetry) Unwrap() error { return e.cause }

func (bf *BlockFlow) touchedChains(self model.ChainIndex) []model.ChainIndex {
	seen := make(map[model.ChainIndex]struct{})
	chains := make([]model.ChainIndex, 0, model.NumDeps(bf.groups))
	for slot := 0; slot < model.NumDeps(bf.groups); slot++ {
		dep, _ := model.DepChainIndex(self, bf.groups, slot)
		if _, ok := seen[dep]; !ok {
			seen[dep] = struct{}{}
			chains = append(chains, dep)
		}
	}
	return chains
}

func (bf *BlockFlow) snapshotSequences(chains []model.ChainIndex) (map[model.ChainIndex]uint64, error) {
	result := make(map[model.ChainIndex]uint64, len(chains))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(context.Background())
	for _, chain := range chains {
		chain := chain
		g.Go(func() error {
			hc, err := bf.multiChain.GetHashChain(chain)
			if err != nil {
				return err
			}
			seq := hc.Sequence()
			mu.Lock()
			result[chain] = seq
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func sequencesEqual(a, b map[model.ChainIndex]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (bf *BlockFlow) computeBestDeps(self model.ChainIndex) ([]model.Hash, error) {
	parentChain := model.ChainIndex{From: self.From, To: self.To}
	parentHashChain, err := bf.multiChain.GetHashChain(parentChain)
	if err != nil {
		return nil, err
	}
	parentHash, err := parentHashChain.BestTip()
	if err != nil {
		return nil, err
	}

	selected := map[model.ChainIndex]model.Hash{parentChain: parentHash}
	result := make([]model.Hash, model.NumDeps(bf.groups))

	for slot := 0; slot < model.NumDeps(bf.groups); slot++ {
		depChain, isParent := model.DepChainIndex(self, bf.groups, slot)
		if isParent {
			result[slot] = parentHash
			continue
		}
		if existing, ok := selected[depChain]; ok {
			result[slot] = existing
			continue
		}

		hc, err := bf.multiChain.GetHashChain(depChain)
		if err != nil {
			return nil, err
		}
		chosen, err := bf.chooseConsistentTip(hc.TipsByWeightDesc(), depChain, selected)
		if err != nil {
			return nil, err
		}
		result[slot] = chosen
		selected[depChain] = chosen
	}
	return result, nil
}

func (bf *BlockFlow) chooseConsistentTip(candidates []model.Hash, candidateChain model.ChainIndex, selected map[model.ChainIndex]model.Hash) (model.Hash, error) {
	for _, candidate := range candidates {
		consistent := true
		for selChain, selHash := range selected {
			ok, err := bf.isConsistent(candidate, candidateChain, selHash, selChain)
			if err != nil {
				return model.Hash{}, err
			}
			if !ok {
				consistent = false
				break
			}
		}
		if consistent {
			return candidate, nil
		}
	}
	return model.Hash{}, &missingBlockRetry{cause: errors.Errorf(
		"no candidate tip on chain %s is consistent with the currently selected deps", candidateChain)}
}

// isConsistent implements spec.md SS4.5 step 4: two selected tips are
// consistent if each one's view of the other's chain is an ancestor-or-equal
// of the other.
func (bf *BlockFlow) isConsistent(hd model.Hash, dChain model.ChainIndex, hs model.Hash, sChain model.ChainIndex) (bool, error) {
	if dChain == sChain {
		return hd == hs, nil
	}

	dSeesS, err := bf.resolveCrossChainHash(hd, dChain, sChain)
	if err != nil {
		return false, err
	}
	dOK, err := bf.ancestorOrEqual(dSeesS, sChain, hs)
	if err != nil {
		return false, err
	}
	if !dOK {
		return false, nil
	}

	sSeesD, err := bf.resolveCrossChainHash(hs, sChain, dChain)
	if err != nil {
		return false, err
	}
	return bf.ancestorOrEqual(sSeesD, dChain, hd)
}

func (bf *BlockFlow) ancestorOrEqual(candidate model.Hash, chain model.ChainIndex, descendant model.Hash) (bool, error) {
	if candidate == descendant {
		return true, nil
	}
	hc, err := bf.multiChain.GetHashChain(chain)
	if err != nil {
		return false, err
	}
	candidateHeight, err := hc.GetHeight(candidate)
	if err != nil {
		return false, err
	}
	descendantHeight, err := hc.GetHeight(descendant)
	if err != nil {
		return false, err
	}
	if candidateHeight > descendantHeight {
		return false, nil
	}
	pred, err := hc.GetPredecessor(descendant, candidateHeight)
	if err != nil {
		return false, err
	}
	return pred == candidate, nil
}

// resolveCrossChainHash finds what hash chain's dependency vector `hash`
// (accepted on `chain`) records for `target`, following at most two hops.
// A chain's one-hop-reachable set is every chain sharing its From group
// (outgoing deps, including its own direct parent) plus every chain whose
// To group is chain.From (incoming deps). When target is in neither set,
// bridging through (target.From, chain.From) always works: that chain's To
// is chain.From, so it is one-hop from chain, and its From is target.From,
// so target is one-hop from it.
func (bf *BlockFlow) resolveCrossChainHash(hash model.Hash, chain, target model.ChainIndex) (model.Hash, error) {
	if chain == target {
		return hash, nil
	}

	header, err := bf.headerOf(hash, chain)
	if err != nil {
		return model.Hash{}, err
	}
	if dep, ok := oneHopDep(header, hash, chain, target, bf.groups); ok {
		return bf.resolveGenesisSentinel(dep, target)
	}

	bridgeChain := model.ChainIndex{From: target.From, To: chain.From}
	bridgeHash, ok := oneHopDep(header, hash, chain, bridgeChain, bf.groups)
	if !ok {
		return model.Hash{}, errors.Errorf("chain %s has no recorded dep bridging to %s", chain, bridgeChain)
	}
	bridgeHash, err = bf.resolveGenesisSentinel(bridgeHash, bridgeChain)
	if err != nil {
		return model.Hash{}, err
	}
	bridgeHeader, err := bf.headerOf(bridgeHash, bridgeChain)
	if err != nil {
		return model.Hash{}, err
	}
	dep, ok := oneHopDep(bridgeHeader, bridgeHash, bridgeChain, target, bf.groups)
	if !ok {
		return model.Hash{}, errors.Errorf("bridge chain %s has no recorded dep reaching %s", bridgeChain, target)
	}
	return bf.resolveGenesisSentinel(dep, target)
}

// resolveGenesisSentinel maps a dep vector's zero-hash placeholder (what
// every genesis header carries in lieu of a real predecessor, since at
// genesis time every chain is implicitly at its own genesis) to the actual
// genesis hash of the chain that slot addresses.
func (bf *BlockFlow) resolveGenesisSentinel(hash model.Hash, chain model.ChainIndex) (model.Hash, error) {
	if !hash.IsZero() {
		return hash, nil
	}
	hc, err := bf.multiChain.GetHashChain(chain)
	if err != nil {
		return model.Hash{}, err
	}
	return hc.Genesis(), nil
}

func (bf *BlockFlow) headerOf(hash model.Hash, chain model.ChainIndex) (*model.BlockHeader, error) {
	hc, err := bf.multiChain.GetHeaderChain(chain)
	if err != nil {
		return nil, err
	}
	return hc.GetHeader(hash)
}

// oneHopDep scans header's own deps vector (accepted on chain) for a slot
// referencing target, returning that slot's hash. It always succeeds when
// target shares chain.From with chain.
func oneHopDep(header *model.BlockHeader, hash model.Hash, chain, target model.ChainIndex, groups int) (model.Hash, bool) {
	if chain == target {
		return hash, true
	}
	for slot := 0; slot < model.NumDeps(groups); slot++ {
		dep, _ := model.DepChainIndex(chain, groups, slot)
		if dep == target {
			return header.Deps[slot], true
		}
	}
	return model.Hash{}, false
}

// GetSyncLocators returns, for each chain this broker owns, a sparse list
// of ancestors of its current best tip at exponentially spaced heights
// (closest-first), for the remote side of a sync round-trip to diff
// against.
func (bf *BlockFlow) GetSyncLocators() (map[model.ChainIndex][]model.Hash, error) {
	result := make(map[model.ChainIndex][]model.Hash)
	for _, chain := range bf.multiChain.OwnedChainIndexes() {
		hc, err := bf.multiChain.GetHashChain(chain)
		if err != nil {
			return nil, err
		}
		tip, err := hc.BestTip()
		if err != nil {
			return nil, err
		}
		locator, err := locatorFor(hc, tip)
		if err != nil {
			return nil, err
		}
		result[chain] = locator
	}
	return result, nil
}

func locatorFor(hc interface {
	GetHeight(model.Hash) (uint64, error)
	GetPredecessor(model.Hash, uint64) (model.Hash, error)
}, tip model.Hash) ([]model.Hash, error) {
	height, err := hc.GetHeight(tip)
	if err != nil {
		return nil, err
	}
	var locator []model.Hash
	step := uint64(1)
	h := height
	for {
		hash, err := hc.GetPredecessor(tip, h)
		if err != nil {
			return nil, err
		}
		locator = append(locator, hash)
		if h == 0 {
			break
		}
		if h < step {
			h = 0
			continue
		}
		h -= step
		step *= 2
	}
	return locator, nil
}

// GetSyncInventories computes, for each of this broker's chains, the
// hashes it has beyond the highest locator entry the remote side already
// has, up to limit hashes per chain.
func (bf *BlockFlow) GetSyncInventories(remoteLocators map[model.ChainIndex][]model.Hash, limit int) (map[model.ChainIndex][]model.Hash, error) {
	result := make(map[model.ChainIndex][]model.Hash)
	for _, chain := range bf.multiChain.OwnedChainIndexes() {
		hc, err := bf.multiChain.GetHashChain(chain)
		if err != nil {
			return nil, err
		}
		var commonAncestor model.Hash
		found := false
		for _, hash := range remoteLocators[chain] {
			if hc.Contains(hash) {
				commonAncestor = hash
				found = true
				break
			}
		}
		if !found {
			result[chain] = hc.AllHashes()
			if len(result[chain]) > limit {
				result[chain] = result[chain][:limit]
			}
			continue
		}
		after, err := hc.GetHashesAfter(commonAncestor)
		if err != nil {
			return nil, err
		}
		if len(after) > limit {
			after = after[:limit]
		}
		result[chain] = after
	}
	return result, nil
}

// GetIntraCliqueSyncHashes returns every hash this broker owns in chains
// the remote broker also owns, the payload a fresh intra-clique peer
// bootstraps its shared chains from in one shot.
func (bf *BlockFlow) GetIntraCliqueSyncHashes(remote model.BrokerConfig) (map[model.ChainIndex][]model.Hash, error) {
	result := make(map[model.ChainIndex][]model.Hash)
	for _, chain := range bf.multiChain.OwnedChainIndexes() {
		if !remote.OwnsChain(chain) {
			continue
		}
		hc, err := bf.multiChain.GetHashChain(chain)
		if err != nil {
			return nil, err
		}
		result[chain] = hc.AllHashes()
	}
	return result, nil
}
