// Package worldstate provides the one concrete model.WorldState this repo
// wires at startup: an in-memory, copy-on-write UTXO set. The
// merkle-patricia trie a production WorldState would commit to is out of
// scope (spec.md SS1's Non-goals) — BlockChain and BlockTemplateBuilder
// only ever address a WorldState through the model.WorldState/
// WorldStateStore collaborator interfaces, so this stands in for whatever
// trie-backed implementation a real deployment would supply.
//
// Grounded on ardanlabs/blockchain's foundation/blockchain/balance.Sheet
// for the map-based, copy-on-write ledger shape (a mutation clones the map
// rather than mutating it in place, so old snapshots referenced by earlier
// block hashes stay valid for readers), and on the teacher's
// domain/consensus/utils/multiset for Root(): rather than sorting and
// rehashing the whole set on every call, each snapshot carries a
// commitment (see multiset.go) updated incrementally as entries are
// spent/created.
package worldstate

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// UTXOWorldState is a snapshot of unspent outputs. It is immutable; Apply
// returns a new snapshot rather than mutating the receiver, so a
// WorldStateStore can keep serving old roots to readers walking history.
type UTXOWorldState struct {
	utxo       map[model.AssetOutputRef]model.TxOutput
	commitment commitment
}

// Empty returns the all-spent starting snapshot a chain's genesis commits
// its coinbase against.
func Empty() *UTXOWorldState {
	return &UTXOWorldState{utxo: map[model.AssetOutputRef]model.TxOutput{}, commitment: newCommitment()}
}

// ContainsAllInputs reports whether every input tx spends is unspent in
// this snapshot, spec.md SS4.6's readiness check.
func (w *UTXOWorldState) ContainsAllInputs(tx *model.Transaction) (bool, error) {
	for _, in := range tx.Inputs {
		if _, ok := w.utxo[in]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// TotalInputAmount sums the amount each of tx's inputs carries in this
// snapshot, erroring the same way Apply would if an input is unknown or
// already spent.
func (w *UTXOWorldState) TotalInputAmount(tx *model.Transaction) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, in := range tx.Inputs {
		out, ok := w.utxo[in]
		if !ok {
			return nil, model.NewKindedError(model.KindValidation, "spending an unknown or already-spent output", nil)
		}
		total.Add(total, &out.Amount)
	}
	return total, nil
}

// Apply spends tx's inputs and creates its outputs, returning the resulting
// snapshot. It rejects double-spends and outputs exceeding inputs; coinbase
// transactions (no inputs) are exempt from the balance check.
func (w *UTXOWorldState) Apply(tx *model.Transaction) (model.WorldState, error) {
	inputTotal, err := w.TotalInputAmount(tx)
	if err != nil {
		return nil, err
	}

	if !tx.IsCoinbase() && inputTotal.Cmp(tx.TotalOutputAmount()) < 0 {
		return nil, model.NewKindedError(model.KindValidation, "outputs exceed inputs", nil)
	}

	next := make(map[model.AssetOutputRef]model.TxOutput, len(w.utxo)+len(tx.FixedOutputs))
	for k, v := range w.utxo {
		next[k] = v
	}
	nextCommitment := w.commitment.clone()
	for _, in := range tx.Inputs {
		nextCommitment.remove(in, next[in])
		delete(next, in)
	}
	txHash := tx.Hash()
	for i, out := range tx.FixedOutputs {
		ref := model.AssetOutputRef{TxHash: txHash, OutputIndex: uint32(i)}
		next[ref] = out
		nextCommitment.add(ref, out)
	}
	return &UTXOWorldState{utxo: next, commitment: nextCommitment}, nil
}

// Root returns the snapshot's commitment hash. Unlike a sort-then-hash
// digest, this reads directly off the commitment Apply has already been
// maintaining incrementally, so it costs nothing proportional to the set
// size at call time.
func (w *UTXOWorldState) Root() model.Hash {
	return w.commitment.root()
}

// Store keeps every snapshot Apply has ever produced, addressable by Root,
// so BlockChain.WorldStateAt can resolve any accepted block's committed
// state.
type Store struct {
	mu     sync.RWMutex
	states map[model.Hash]*UTXOWorldState
}

// NewStore creates a Store seeded with the empty snapshot.
func NewStore() *Store {
	empty := Empty()
	return &Store{states: map[model.Hash]*UTXOWorldState{empty.Root(): empty}}
}

// Register makes state resolvable by its own Root, called after each
// UTXOWorldState.Apply the way a trie's commit step durably writes its new
// root.
func (s *Store) Register(state *UTXOWorldState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Root()] = state
}

// AtRoot resolves a previously Register-ed snapshot.
func (s *Store) AtRoot(root model.Hash) (model.WorldState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[root]
	if !ok {
		return nil, model.NewKindedError(model.KindMissingDependency, "unknown world-state root", nil)
	}
	return state, nil
}
