package nodeboot

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/consensus/multichain"
	"github.com/liuhongchao/alephium/domain/worldstate"
)

// BuildGenesis mines a genesis block for each chain this broker owns.
// Real chain params (initial target, allocation) would come from a network
// config file the way the teacher's dagconfig.Params does; wallet/allocation
// wiring is out of scope here, so genesis mints nothing but a zero-value
// coinbase per chain, matching genesis height 0's usual "no supply yet"
// convention.
func BuildGenesis(broker model.BrokerConfig, initialTarget model.CompactTarget, states *worldstate.Store) (map[model.ChainIndex]multichain.ChainConfig, error) {
	genesis := make(map[model.ChainIndex]multichain.ChainConfig, len(broker.OwnedGroups())*broker.Groups)
	zeroDeps := make([]model.Hash, model.NumDeps(broker.Groups))

	for _, from := range broker.OwnedGroups() {
		for to := 0; to < broker.Groups; to++ {
			idx := model.ChainIndex{From: from, To: model.GroupIndex(to)}
			coinbase := &model.Transaction{FixedOutputs: []model.TxOutput{{Amount: *uint256.NewInt(0), LockupScript: nil}}}
			txsRoot := model.HashTransactions([]*model.Transaction{coinbase})

			header, err := mineGenesisHeader(idx, broker.Groups, zeroDeps, txsRoot, initialTarget)
			if err != nil {
				return nil, err
			}
			block := &model.Block{Header: header, Transactions: []*model.Transaction{coinbase}}

			state, err := worldstate.Empty().Apply(coinbase)
			if err != nil {
				return nil, err
			}
			utxo := state.(*worldstate.UTXOWorldState)
			states.Register(utxo)

			genesis[idx] = multichain.ChainConfig{GenesisBlock: block, GenesisWorldStateRoot: utxo.Root()}
		}
	}
	return genesis, nil
}

// mineGenesisHeader brute-forces a nonce landing header.ChainIndex(groups)
// on wanted, the same construction every ChainIndex-from-hash design needs
// for a hand-seeded (rather than mined-by-a-miner) genesis block.
func mineGenesisHeader(wanted model.ChainIndex, groups int, deps []model.Hash, txsRoot model.Hash, target model.CompactTarget) (model.BlockHeader, error) {
	for n := uint64(0); n < 1<<32; n++ {
		var nonce uint256.Int
		nonce.SetUint64(n)
		h := model.BlockHeader{Deps: deps, TxsRoot: txsRoot, Timestamp: 0, Target: target, Nonce: nonce}
		if h.ChainIndex(groups) == wanted {
			return h, nil
		}
	}
	return model.BlockHeader{}, model.NewKindedError(model.KindInternal, "exhausted nonce space mining genesis for "+wanted.String(), nil)
}

// DefaultInitialTarget is an easy placeholder target; a real deployment
// would set this from network parameters sized to the expected hash rate.
func DefaultInitialTarget() model.CompactTarget {
	return model.BigToCompact(big.NewInt(1 << 20))
}
