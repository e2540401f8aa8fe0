package blockflow

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/headerchain"
	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/consensus/multichain"
)

// fakeWorldState is a minimal stand-in for the out-of-scope merkle-patricia
// WorldState collaborator, just enough to execute coinbase-only blocks.
type fakeWorldState struct {
	store *fakeWorldStateStore
	utxo  map[model.AssetOutputRef]model.TxOutput
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
	result := &fakeWorldState{store: w.store, utxo: next}
	w.store.states[result.Root()] = result
	return result, nil
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

// mineHeader searches nonces until header.ChainIndex(groups) == wanted, the
// same "chain index is hash-derived" brute force every genesis (and, here,
// every test fixture block) needs.
func mineHeader(wanted model.ChainIndex, groups int, deps []model.Hash, txsRoot model.Hash, timestamp uint64, target model.CompactTarget) model.BlockHeader {
	for n := uint64(0); ; n++ {
		var nonce uint256.Int
		nonce.SetUint64(n)
		h := model.BlockHeader{Deps: deps, TxsRoot: txsRoot, Timestamp: timestamp, Target: target, Nonce: nonce}
		if h.ChainIndex(groups) == wanted {
			return h
		}
	}
}

func coinbaseTx(amount int64) *model.Transaction {
	return &model.Transaction{FixedOutputs: []model.TxOutput{{Amount: *uint256.NewInt(uint64(amount)), LockupScript: []byte("miner")}}}
}

var diffParams = headerchain.DifficultyParams{
	MedianTimeInterval: 17,
	ExpectedTimeSpan:   64000,
	TimeSpanMin:        16000,
	TimeSpanMax:        256000,
}

// buildFixture wires up a G-group MultiChain owned entirely by one broker,
// with every chain seeded at a mined genesis, and returns it alongside the
// genesis hash of every chain for callers to build further blocks from.
func buildFixture(t *testing.T, groups int) (*multichain.MultiChain, *fakeWorldStateStore, map[model.ChainIndex]model.Hash) {
	t.Helper()
	target := model.BigToCompact(big.NewInt(1000))
	zeroDeps := make([]model.Hash, model.NumDeps(groups))

	store := &fakeWorldStateStore{states: map[model.Hash]*fakeWorldState{}}
	genesisConfigs := make(map[model.ChainIndex]multichain.ChainConfig)
	genesisHashes := make(map[model.ChainIndex]model.Hash)

	for from := 0; from < groups; from++ {
		for to := 0; to < groups; to++ {
			idx := model.ChainIndex{From: model.GroupIndex(from), To: model.GroupIndex(to)}
			coinbase := coinbaseTx(1)
			txsRoot := model.HashTransactions([]*model.Transaction{coinbase})
			header := mineHeader(idx, groups, zeroDeps, txsRoot, 0, target)
			block := &model.Block{Header: header, Transactions: []*model.Transaction{coinbase}}

			state, err := (&fakeWorldState{store: store, utxo: map[model.AssetOutputRef]model.TxOutput{}}).Apply(coinbase)
			if err != nil {
				t.Fatalf("applying genesis coinbase for %s: %+v", idx, err)
			}
			root := state.Root()

			genesisConfigs[idx] = multichain.ChainConfig{GenesisBlock: block, GenesisWorldStateRoot: root}
			genesisHashes[idx] = block.Hash()
		}
	}

	config := model.BrokerConfig{Groups: groups, BrokerNum: 1, BrokerID: 0}
	mc, err := multichain.New(config, genesisConfigs, 1000, diffParams, store, nil)
	if err != nil {
		t.Fatalf("multichain.New: %+v", err)
	}
	return mc, store, genesisHashes
}

func TestGetBestDepsTrivialSingleGroup(t *testing.T) {
	mc, _, genesisHashes := buildFixture(t, 1)
	bf := New(mc)

	self := model.ChainIndex{From: 0, To: 0}
	deps, err := bf.GetBestDeps(self)
	if err != nil {
		t.Fatalf("GetBestDeps: %+v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("len(deps) = %d, want 1", len(deps))
	}
	if deps[0] != genesisHashes[self] {
		t.Fatalf("deps[0] = %s, want genesis %s", deps[0], genesisHashes[self])
	}
}

// extendChain appends a single-transaction block on top of parent, mined to
// belong to self, and admits it via BlockChain.Add.
func extendChain(t *testing.T, mc *multichain.MultiChain, self model.ChainIndex, groups int, parent model.Hash, incomingDep, outgoingDep model.Hash, timestamp uint64, target model.CompactTarget) model.Hash {
	t.Helper()
	chain, err := mc.GetBlockChain(self)
	if err != nil {
		t.Fatalf("GetBlockChain(%s): %+v", self, err)
	}

	coinbase := coinbaseTx(1)
	txsRoot := model.HashTransactions([]*model.Transaction{coinbase})
	deps := []model.Hash{incomingDep, outgoingDep, parent}
	header := mineHeader(self, groups, deps, txsRoot, timestamp, target)
	block := &model.Block{Header: header, Transactions: []*model.Transaction{coinbase}}

	if err := chain.Add(block); err != nil {
		t.Fatalf("Add block on %s: %+v", self, err)
	}
	return block.Hash()
}

// TestGetBestDepsPicksHeaviestConsistentTip builds two competing branches on
// chain (0,0): a one-block branch and a two-block branch. Both are
// cross-chain consistent with the (static, genesis-only) sibling chains
// (1,0) and (0,1), so GetBestDeps must pick the heavier, two-block tip as
// the direct-parent slot.
func TestGetBestDepsPicksHeaviestConsistentTip(t *testing.T) {
	const groups = 2
	mc, _, genesisHashes := buildFixture(t, groups)

	self := model.ChainIndex{From: 0, To: 0}
	incoming := model.ChainIndex{From: 1, To: 0}
	outgoing := model.ChainIndex{From: 0, To: 1}
	target := model.BigToCompact(big.NewInt(1000))

	genesisSelf := genesisHashes[self]
	incomingGenesis := genesisHashes[incoming]
	outgoingGenesis := genesisHashes[outgoing]

	// Short branch: one block off genesis.
	_ = extendChain(t, mc, self, groups, genesisSelf, incomingGenesis, outgoingGenesis, 1000, target)

	// Long branch: two blocks off genesis, strictly heavier.
	b1 := extendChain(t, mc, self, groups, genesisSelf, incomingGenesis, outgoingGenesis, 2000, target)
	b2 := extendChain(t, mc, self, groups, b1, incomingGenesis, outgoingGenesis, 3000, target)

	bf := New(mc)
	deps, err := bf.GetBestDeps(self)
	if err != nil {
		t.Fatalf("GetBestDeps: %+v", err)
	}
	if len(deps) != model.NumDeps(groups) {
		t.Fatalf("len(deps) = %d, want %d", len(deps), model.NumDeps(groups))
	}

	directParentSlot := model.NumDeps(groups) - 1
	if deps[directParentSlot] != b2 {
		t.Fatalf("direct-parent dep = %s, want heaviest tip %s", deps[directParentSlot], b2)
	}
	if deps[0] != incomingGenesis {
		t.Fatalf("incoming dep = %s, want %s", deps[0], incomingGenesis)
	}
	if deps[1] != outgoingGenesis {
		t.Fatalf("outgoing dep = %s, want %s", deps[1], outgoingGenesis)
	}
}
