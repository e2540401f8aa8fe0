// Package multichain implements spec.md SS4.4: a dense G*G array of chains,
// dispatched by ChainIndex, with aggregations that fold over every chain
// this broker owns.
//
// Grounded on the teacher's domain/consensus construction, which wires one
// blockNode store per virtual chain behind a single facade; this package
// generalizes that to the G*G array spec.md SS3/SS4.4 describe, dispatching
// by (from,to) rather than by a single GHOSTDAG DAG.
package multichain

import (
	"github.com/liuhongchao/alephium/domain/consensus/blockchain"
	"github.com/liuhongchao/alephium/domain/consensus/hashchain"
	"github.com/liuhongchao/alephium/domain/consensus/headerchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/pkg/errors"
)

// ChainConfig carries the genesis material MultiChain needs to seed one
// chain: the genesis block body and the world-state root it commits to.
// Genesis construction itself (reward schedule, allocation) is wired by the
// node's startup code, not by this package.
type ChainConfig struct {
	GenesisBlock          *model.Block
	GenesisWorldStateRoot model.Hash
}

// MultiChain owns a dense G*G array of chains and dispatches by ChainIndex.
// Entries for chains this broker does not own (per BrokerConfig.OwnsChain)
// are left nil.
type MultiChain struct {
	config model.BrokerConfig
	chains []*blockchain.BlockChain // row-major, size Groups*Groups
}

// New constructs a MultiChain, building one BlockChain per chain this broker
// owns. genesis must contain a ChainConfig for every owned chain; it is an
// error for one to be missing.
func New(
	config model.BrokerConfig,
	genesis map[model.ChainIndex]ChainConfig,
	tipsPruneInterval uint64,
	diffParams headerchain.DifficultyParams,
	worldState model.WorldStateStore,
	metrics model.MetricsSink,
) (*MultiChain, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	mc := &MultiChain{
		config: config,
		chains: make([]*blockchain.BlockChain, model.NumChains(config.Groups)),
	}

	for from := 0; from < config.Groups; from++ {
		for to := 0; to < config.Groups; to++ {
			idx := model.ChainIndex{From: model.GroupIndex(from), To: model.GroupIndex(to)}
			if !config.OwnsChain(idx) {
				continue
			}
			cfg, ok := genesis[idx]
			if !ok {
				return nil, errors.Errorf("missing genesis configuration for owned chain %s", idx)
			}
			chain := blockchain.New(idx, config.Groups, cfg.GenesisBlock, cfg.GenesisWorldStateRoot,
				tipsPruneInterval, diffParams, worldState, metrics)
			mc.chains[idx.FlattenedIndex(config.Groups)] = chain
		}
	}
	return mc, nil
}

// BrokerConfig returns the configuration this MultiChain was built from.
func (mc *MultiChain) BrokerConfig() model.BrokerConfig {
	return mc.config
}

// GetBlockChain dispatches to the BlockChain for idx.
func (mc *MultiChain) GetBlockChain(idx model.ChainIndex) (*blockchain.BlockChain, error) {
	if !mc.config.OwnsChain(idx) {
		return nil, errors.Errorf("chain %s is not owned by this broker", idx)
	}
	chain := mc.chains[idx.FlattenedIndex(mc.config.Groups)]
	if chain == nil {
		return nil, errors.Errorf("chain %s has not been initialized", idx)
	}
	return chain, nil
}

// GetHeaderChain dispatches to the HeaderChain for idx.
func (mc *MultiChain) GetHeaderChain(idx model.ChainIndex) (*headerchain.HeaderChain, error) {
	chain, err := mc.GetBlockChain(idx)
	if err != nil {
		return nil, err
	}
	return chain.HeaderChain, nil
}

// GetHashChain dispatches to the HashChain for idx.
func (mc *MultiChain) GetHashChain(idx model.ChainIndex) (*hashchain.HashChain, error) {
	chain, err := mc.GetHeaderChain(idx)
	if err != nil {
		return nil, err
	}
	return chain.HashChain, nil
}

// OwnedChainIndexes returns every chain index this broker owns, in
// ascending (from,to) order.
func (mc *MultiChain) OwnedChainIndexes() []model.ChainIndex {
	var result []model.ChainIndex
	for from := 0; from < mc.config.Groups; from++ {
		for to := 0; to < mc.config.Groups; to++ {
			idx := model.ChainIndex{From: model.GroupIndex(from), To: model.GroupIndex(to)}
			if mc.config.OwnsChain(idx) {
				result = append(result, idx)
			}
		}
	}
	return result
}

// NumHashes sums NumHashes() across every chain this broker owns.
func (mc *MultiChain) NumHashes() int {
	total := 0
	for _, chain := range mc.chains {
		if chain != nil {
			total += chain.NumHashes()
		}
	}
	return total
}

// GetHeightedBlockHeaders folds over every chain this broker owns and
// returns the headers whose timestamp falls within [from, to].
func (mc *MultiChain) GetHeightedBlockHeaders(from, to uint64) []*model.BlockHeader {
	var result []*model.BlockHeader
	for _, chain := range mc.chains {
		if chain == nil {
			continue
		}
		result = append(result, chain.HeadersInTimeRange(from, to)...)
	}
	return result
}
