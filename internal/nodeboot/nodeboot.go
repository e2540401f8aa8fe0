// Package nodeboot builds the runnable domain graph (MultiChain, BlockFlow,
// per-group mempools, BlockTemplateBuilder, misbehavior storage) a loaded
// config.Config describes, shared by cmd/blockflownode (the daemon) and
// cmd/blockflowctl (its debug probes) so both boot the identical graph a
// running node would.
package nodeboot

import (
	"fmt"
	"strconv"

	"github.com/liuhongchao/alephium/domain/consensus/blockflow"
	"github.com/liuhongchao/alephium/domain/consensus/headerchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/consensus/multichain"
	"github.com/liuhongchao/alephium/domain/mempool"
	"github.com/liuhongchao/alephium/domain/mining"
	"github.com/liuhongchao/alephium/domain/misbehavior"
	"github.com/liuhongchao/alephium/domain/worldstate"
	"github.com/liuhongchao/alephium/infrastructure/config"
	"github.com/liuhongchao/alephium/infrastructure/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Node bundles the constructed domain graph.
type Node struct {
	Broker      model.BrokerConfig
	MultiChain  *multichain.MultiChain
	BlockFlow   *blockflow.BlockFlow
	MemPools    map[model.GroupIndex]*mempool.MemPool
	Templates   *mining.BlockTemplateBuilder
	Misbehavior *misbehavior.Storage
	WorldStates *worldstate.Store
}

// staticRewards pays every chain's coinbase to a fixed placeholder script;
// a real deployment would resolve this from the miner's wallet, out of
// scope here.
type staticRewards struct{}

func (staticRewards) AddressFor(group model.GroupIndex) model.LockupScript {
	return []byte(fmt.Sprintf("reward-group-%d", group))
}

// Boot constructs a Node from cfg: mines one genesis block per owned chain,
// then wires MultiChain, BlockFlow, one MemPool per owned group, and a
// BlockTemplateBuilder over all of it.
func Boot(cfg *config.Config) (*Node, error) {
	broker := model.BrokerConfig{Groups: cfg.Broker.Groups, BrokerNum: cfg.Broker.BrokerNum, BrokerID: cfg.Broker.BrokerID}
	if err := broker.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid broker configuration")
	}

	maxTarget, err := strconv.ParseUint(cfg.Consensus.MaxMiningTarget, 16, 32)
	if err != nil {
		return nil, errors.Errorf("max-mining-target %q is not a valid hex compact target", cfg.Consensus.MaxMiningTarget)
	}
	diffParams := headerchain.DifficultyParams{
		MedianTimeInterval: cfg.Consensus.MedianTimeInterval,
		ExpectedTimeSpan:   cfg.Consensus.ExpectedTimeSpan,
		TimeSpanMin:        cfg.Consensus.TimeSpanMin,
		TimeSpanMax:        cfg.Consensus.TimeSpanMax,
		MaxTarget:          model.CompactTarget(maxTarget),
	}

	states := worldstate.NewStore()
	genesis, err := BuildGenesis(broker, DefaultInitialTarget(), states)
	if err != nil {
		return nil, errors.Wrap(err, "mining genesis blocks")
	}

	sink := metrics.New(prometheus.NewRegistry())

	mc, err := multichain.New(broker, genesis, cfg.Consensus.TipsPruneInterval, diffParams, states, sink)
	if err != nil {
		return nil, errors.Wrap(err, "constructing multichain")
	}

	bf := blockflow.New(mc)

	mempoolCfg := mempool.Config{
		SharedPoolCapacity:  cfg.Mempool.SharedPoolCapacity,
		PendingPoolCapacity: cfg.Mempool.PendingPoolCapacity,
		TxMaxNumberPerBlock: cfg.Mempool.TxMaxNumberPerBlock,
		CleanFrequency:      uint64(cfg.Mempool.CleanFrequency.Milliseconds()),
	}
	pools := make(map[model.GroupIndex]*mempool.MemPool, len(broker.OwnedGroups()))
	for _, g := range broker.OwnedGroups() {
		pools[g] = mempool.New(mempoolCfg)
	}

	builder := mining.New(
		mining.Config{TxMaxNumberPerBlock: cfg.Mempool.TxMaxNumberPerBlock, BlockReward: cfg.Mining.BlockReward},
		bf, mc, pools, staticRewards{},
	)

	misbehaviorStore := misbehavior.New(misbehavior.Config{
		BanThreshold:       misbehavior.DefaultConfig().BanThreshold,
		BanDuration:        uint64(cfg.Network.BanDuration.Milliseconds()),
		PenaltyForgiveness: cfg.Network.PenaltyForgiveness,
		PenaltyFrequency:   uint64(cfg.Network.PenaltyFrequency.Milliseconds()),
	})

	return &Node{
		Broker:      broker,
		MultiChain:  mc,
		BlockFlow:   bf,
		MemPools:    pools,
		Templates:   builder,
		Misbehavior: misbehaviorStore,
		WorldStates: states,
	}, nil
}
