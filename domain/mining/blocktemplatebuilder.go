package mining

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/blockflow"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/consensus/multichain"
	"github.com/liuhongchao/alephium/domain/mempool"
)

// BlockTemplate is the mineable material BlockTemplateBuilder.Build hands to
// the (out-of-scope) Miner collaborator: everything needed to search for a
// nonce, plus the transaction set that nonce would commit to.
type BlockTemplate struct {
	ChainIndex   model.ChainIndex
	Deps         []model.Hash
	Target       model.CompactTarget
	Timestamp    uint64
	TxsRoot      model.Hash
	Transactions []*model.Transaction
}

// RewardAddressResolver resolves the lockup script a chain's coinbase
// should pay, the out-of-scope wallet collaborator's seam into template
// assembly.
type RewardAddressResolver interface {
	AddressFor(group model.GroupIndex) model.LockupScript
}

// Config bounds BlockTemplateBuilder per spec.md SS6's mempool/mining
// options.
type Config struct {
	TxMaxNumberPerBlock int
	BlockReward         uint64
}

// BlockTemplateBuilder assembles BlockTemplates per spec.md SS4.8.
type BlockTemplateBuilder struct {
	config     Config
	blockFlow  *blockflow.BlockFlow
	multiChain *multichain.MultiChain
	mempools   map[model.GroupIndex]*mempool.MemPool
	rewards    RewardAddressResolver
}

// New creates a BlockTemplateBuilder. mempools must have an entry for every
// group this broker owns.
func New(
	config Config,
	blockFlow *blockflow.BlockFlow,
	multiChain *multichain.MultiChain,
	mempools map[model.GroupIndex]*mempool.MemPool,
	rewards RewardAddressResolver,
) *BlockTemplateBuilder {
	return &BlockTemplateBuilder{
		config:     config,
		blockFlow:  blockFlow,
		multiChain: multiChain,
		mempools:   mempools,
		rewards:    rewards,
	}
}

// Build assembles a BlockTemplate for chainIndex, per spec.md SS4.8's
// seven-step recipe.
func (b *BlockTemplateBuilder) Build(chainIndex model.ChainIndex) (*BlockTemplate, error) {
	deps, err := b.blockFlow.GetBestDeps(chainIndex)
	if err != nil {
		return nil, err
	}
	parent := deps[len(deps)-1]

	chain, err := b.multiChain.GetBlockChain(chainIndex)
	if err != nil {
		return nil, err
	}
	worldState, err := chain.WorldStateAt(parent)
	if err != nil {
		return nil, err
	}

	mp, ok := b.mempools[chainIndex.From]
	if !ok {
		return nil, model.NewKindedError(model.KindInternal,
			fmt.Sprintf("no mempool configured for group %d", chainIndex.From), nil)
	}
	candidates, err := mp.ExtractReadyTxs(worldState, b.config.TxMaxNumberPerBlock-1)
	if err != nil {
		return nil, err
	}
	ordered := NonCoinbaseExecutionOrder(parent, candidates)

	coinbase, err := b.buildCoinbase(worldState, chainIndex.To, ordered)
	if err != nil {
		return nil, err
	}
	txs := append(ordered, coinbase)

	target, err := chain.NextTargetAfter(parent)
	if err != nil {
		return nil, err
	}
	parentTimestamp, err := chain.GetTimestamp(parent)
	if err != nil {
		return nil, err
	}
	timestamp := model.NowMillis()
	if timestamp <= parentTimestamp {
		timestamp = parentTimestamp + 1
	}

	template := &BlockTemplate{
		ChainIndex:   chainIndex,
		Deps:         deps,
		Target:       target,
		Timestamp:    timestamp,
		TxsRoot:      model.HashTransactions(txs),
		Transactions: txs,
	}
	log.Debugf("built template for %s: %d txs (%d non-coinbase) on parent %s", chainIndex, len(txs), len(ordered), parent)
	return template, nil
}

// buildCoinbase mints the block reward plus the true fee of each candidate
// tx, i.e. what each tx's inputs carry minus what it pays back out — not the
// gross amount it moves, which a naive sum of TotalOutputAmount would
// overcount by the whole transferred value rather than just its fee.
func (b *BlockTemplateBuilder) buildCoinbase(worldState model.WorldState, to model.GroupIndex, txs []*model.Transaction) (*model.Transaction, error) {
	fees := new(uint256.Int)
	for _, tx := range txs {
		inputTotal, err := worldState.TotalInputAmount(tx)
		if err != nil {
			return nil, err
		}
		fee := new(uint256.Int).Sub(inputTotal, tx.TotalOutputAmount())
		fees.Add(fees, fee)
	}
	reward := new(uint256.Int).SetUint64(b.config.BlockReward)
	reward.Add(reward, fees)

	var lockupScript model.LockupScript
	if b.rewards != nil {
		lockupScript = b.rewards.AddressFor(to)
	}
	return &model.Transaction{
		FixedOutputs: []model.TxOutput{{Amount: *reward, LockupScript: lockupScript}},
	}, nil
}
