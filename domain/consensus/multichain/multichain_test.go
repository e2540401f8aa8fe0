package multichain

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/headerchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// fakeWorldState is a minimal stand-in for the out-of-scope merkle-patricia
// WorldState collaborator, just enough to seed genesis blocks.
type fakeWorldState struct {
	utxo map[model.AssetOutputRef]model.TxOutput
}

func (w *fakeWorldState) ContainsAllInputs(tx *model.Transaction) (bool, error) {
	for _, in := range tx.Inputs {
		if _, ok := w.utxo[in]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (w *fakeWorldState) TotalInputAmount(tx *model.Transaction) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, in := range tx.Inputs {
		out, ok := w.utxo[in]
		if !ok {
			return nil, model.ErrMissingBlock(in.TxHash)
		}
		total.Add(total, &out.Amount)
	}
	return total, nil
}

func (w *fakeWorldState) Apply(tx *model.Transaction) (model.WorldState, error) {
	next := make(map[model.AssetOutputRef]model.TxOutput, len(w.utxo)+len(tx.FixedOutputs))
	for k, v := range w.utxo {
		next[k] = v
	}
	txHash := tx.Hash()
	for i, out := range tx.FixedOutputs {
		next[model.AssetOutputRef{TxHash: txHash, OutputIndex: uint32(i)}] = out
	}
	return &fakeWorldState{utxo: next}, nil
}

func (w *fakeWorldState) Root() model.Hash {
	var acc model.Hash
	for k := range w.utxo {
		for i := range acc {
			acc[i] ^= k.TxHash[i]
		}
	}
	return acc
}

type fakeWorldStateStore struct {
	states map[model.Hash]*fakeWorldState
}

func (s *fakeWorldStateStore) AtRoot(root model.Hash) (model.WorldState, error) {
	st, ok := s.states[root]
	if !ok {
		return nil, model.ErrMissingBlock(root)
	}
	return st, nil
}

// mineGenesis searches nonces until header.ChainIndex(groups) == wanted,
// mirroring how a real genesis per chain is produced: the chain a block
// belongs to is derived from its own hash, so a genesis for chain (f,t) must
// be "mined" for it the same way any other block is.
func mineGenesis(wanted model.ChainIndex, groups int, deps []model.Hash, txsRoot model.Hash, timestamp uint64, target model.CompactTarget) model.BlockHeader {
	for n := uint64(0); ; n++ {
		var nonce uint256.Int
		nonce.SetUint64(n)
		h := model.BlockHeader{Deps: deps, TxsRoot: txsRoot, Timestamp: timestamp, Target: target, Nonce: nonce}
		if h.ChainIndex(groups) == wanted {
			return h
		}
	}
}

func buildGenesisConfigs(t *testing.T, groups int, store *fakeWorldStateStore) map[model.ChainIndex]ChainConfig {
	t.Helper()
	target := model.BigToCompact(big.NewInt(1000))
	deps := make([]model.Hash, model.NumDeps(groups))

	genesis := make(map[model.ChainIndex]ChainConfig)
	for from := 0; from < groups; from++ {
		for to := 0; to < groups; to++ {
			idx := model.ChainIndex{From: model.GroupIndex(from), To: model.GroupIndex(to)}
			coinbase := &model.Transaction{FixedOutputs: []model.TxOutput{{}}}
			txsRoot := model.HashTransactions([]*model.Transaction{coinbase})
			header := mineGenesis(idx, groups, deps, txsRoot, 0, target)
			block := &model.Block{Header: header, Transactions: []*model.Transaction{coinbase}}

			state, err := (&fakeWorldState{utxo: map[model.AssetOutputRef]model.TxOutput{}}).Apply(coinbase)
			if err != nil {
				t.Fatalf("applying genesis coinbase for %s: %+v", idx, err)
			}
			root := state.Root()
			store.states[root] = state.(*fakeWorldState)

			genesis[idx] = ChainConfig{GenesisBlock: block, GenesisWorldStateRoot: root}
		}
	}
	return genesis
}

func TestNewOwnsExactlyConfiguredChains(t *testing.T) {
	const groups = 2
	store := &fakeWorldStateStore{states: map[model.Hash]*fakeWorldState{}}
	genesis := buildGenesisConfigs(t, groups, store)

	config := model.BrokerConfig{Groups: groups, BrokerNum: 2, BrokerID: 0}
	params := headerchain.DifficultyParams{MedianTimeInterval: 17, ExpectedTimeSpan: 64000, TimeSpanMin: 16000, TimeSpanMax: 256000}

	mc, err := New(config, genesis, 100, params, store, nil)
	if err != nil {
		t.Fatalf("New: %+v", err)
	}

	owned := mc.OwnedChainIndexes()
	want := []model.ChainIndex{{From: 0, To: 0}, {From: 0, To: 1}}
	if len(owned) != len(want) {
		t.Fatalf("OwnedChainIndexes = %v, want %v", owned, want)
	}
	for i := range want {
		if owned[i] != want[i] {
			t.Fatalf("OwnedChainIndexes[%d] = %s, want %s", i, owned[i], want[i])
		}
	}

	if _, err := mc.GetBlockChain(model.ChainIndex{From: 0, To: 0}); err != nil {
		t.Fatalf("GetBlockChain(0,0): %+v", err)
	}
	if _, err := mc.GetBlockChain(model.ChainIndex{From: 1, To: 0}); err == nil {
		t.Fatalf("expected error for chain (1,0), not owned by this broker")
	}

	if got := mc.NumHashes(); got != 2 {
		t.Fatalf("NumHashes = %d, want 2 (one genesis per owned chain)", got)
	}

	headers := mc.GetHeightedBlockHeaders(0, 0)
	if len(headers) != 2 {
		t.Fatalf("GetHeightedBlockHeaders = %d headers, want 2", len(headers))
	}
}

func TestNewRejectsMissingGenesisConfig(t *testing.T) {
	const groups = 2
	store := &fakeWorldStateStore{states: map[model.Hash]*fakeWorldState{}}
	genesis := buildGenesisConfigs(t, groups, store)
	delete(genesis, model.ChainIndex{From: 0, To: 1})

	config := model.BrokerConfig{Groups: groups, BrokerNum: 1, BrokerID: 0}
	params := headerchain.DifficultyParams{MedianTimeInterval: 17, ExpectedTimeSpan: 64000, TimeSpanMin: 16000, TimeSpanMax: 256000}

	if _, err := New(config, genesis, 100, params, store, nil); err == nil {
		t.Fatalf("expected error for missing genesis config")
	}
}
