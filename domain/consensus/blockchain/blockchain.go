// Package blockchain implements spec.md SS4.3: a HeaderChain plus block
// body storage and world-state-root checkpoints, executing transactions on
// acceptance.
//
// Grounded on the teacher's blockdag package shape (header chain plus a
// sibling block-body store keyed by hash), generalized since this BlockDAG
// applies transactions against a pluggable WorldState collaborator rather
// than a UTXO set the teacher owns directly.
package blockchain

import (
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/headerchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// BlockChain owns one of the G*G chains' accepted block bodies and the
// world-state root each block commits to.
type BlockChain struct {
	*headerchain.HeaderChain

	chainIndex model.ChainIndex
	groups     int
	worldState model.WorldStateStore
	metrics    model.MetricsSink

	mu              sync.RWMutex
	bodies          map[model.Hash]*model.Block
	worldStateRoots map[model.Hash]model.Hash
}

// New creates a BlockChain rooted at a genesis block whose world state is
// already committed at genesisWorldStateRoot.
func New(
	chainIndex model.ChainIndex,
	groups int,
	genesisBlock *model.Block,
	genesisWorldStateRoot model.Hash,
	tipsPruneInterval uint64,
	params headerchain.DifficultyParams,
	worldState model.WorldStateStore,
	metrics model.MetricsSink,
) *BlockChain {
	hc := headerchain.New(chainIndex, &genesisBlock.Header, tipsPruneInterval, params)
	genesisHash := genesisBlock.Hash()
	bc := &BlockChain{
		HeaderChain:     hc,
		chainIndex:      chainIndex,
		groups:          groups,
		worldState:      worldState,
		metrics:         metrics,
		bodies:          make(map[model.Hash]*model.Block),
		worldStateRoots: make(map[model.Hash]model.Hash),
	}
	bc.bodies[genesisHash] = genesisBlock
	bc.worldStateRoots[genesisHash] = genesisWorldStateRoot
	return bc
}

// ChainIndex returns the chain this BlockChain stores blocks for.
func (bc *BlockChain) ChainIndex() model.ChainIndex {
	return bc.chainIndex
}

// GetBlock returns the stored body for hash.
func (bc *BlockChain) GetBlock(hash model.Hash) (*model.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	block, ok := bc.bodies[hash]
	if !ok {
		return nil, model.ErrMissingBlock(hash)
	}
	return block, nil
}

// WorldStateRoot returns the trie root hash committed to by hash's block.
func (bc *BlockChain) WorldStateRoot(hash model.Hash) (model.Hash, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	root, ok := bc.worldStateRoots[hash]
	if !ok {
		return model.Hash{}, model.ErrMissingBlock(hash)
	}
	return root, nil
}

// WorldStateAt resolves the WorldState committed by hash's block, through
// the WorldStateStore collaborator.
func (bc *BlockChain) WorldStateAt(hash model.Hash) (model.WorldState, error) {
	root, err := bc.WorldStateRoot(hash)
	if err != nil {
		return nil, err
	}
	return bc.worldState.AtRoot(root)
}

// Add validates block's chain index and difficulty, executes its
// transactions against its parent's world state in the order they appear
// (see mining.NonCoinbaseExecutionOrder for how that order is chosen),
// persists the resulting body and world-state root, and admits the header
// into the underlying HeaderChain.
//
// WorldState.Apply is expected to durably commit the state it returns (the
// way a trie's commit step writes its new root), so that a later
// WorldStateStore.AtRoot(state.Root()) resolves it; BlockChain itself only
// tracks which root each block committed to, not how that root is stored.
func (bc *BlockChain) Add(block *model.Block) error {
	if err := block.Header.ValidateDepsLength(bc.groups); err != nil {
		return model.NewKindedError(model.KindValidation, "malformed deps vector", err)
	}
	if got := block.ChainIndex(bc.groups); got != bc.chainIndex {
		return model.NewKindedError(model.KindValidation,
			"block chain index does not match this chain", nil)
	}

	parentHash, err := block.Header.DirectParent()
	if err != nil {
		return model.NewKindedError(model.KindValidation, "block has no direct parent", err)
	}

	parentWorldState, err := bc.WorldStateAt(parentHash)
	if err != nil {
		return err
	}

	state := parentWorldState
	for _, tx := range block.Transactions {
		state, err = state.Apply(tx)
		if err != nil {
			return model.ErrInvalidExecution(err)
		}
	}

	if err := bc.HeaderChain.Add(&block.Header); err != nil {
		return err
	}

	hash := block.Hash()
	bc.mu.Lock()
	bc.bodies[hash] = block
	bc.worldStateRoots[hash] = state.Root()
	bc.mu.Unlock()

	if bc.metrics != nil {
		bc.metrics.IncCounter("blocks_accepted", "chain", bc.chainIndex.String())
	}
	log.Debugf("accepted block %s on chain %s at world-state root %s", hash, bc.chainIndex, state.Root())
	return nil
}
