package model

import "github.com/holiman/uint256"

// WorldState is the aggregate of all UTXOs and contract states at some
// block, addressable by its trie root hash. Its implementation (a
// merkle-patricia trie) is an out-of-scope collaborator per spec.md SS1;
// the consensus core only calls through this interface.
type WorldState interface {
	// ContainsAllInputs reports whether every input of tx resolves against
	// this world state, i.e. whether tx is ready to be mined.
	ContainsAllInputs(tx *Transaction) (bool, error)

	// TotalInputAmount sums the amount carried by each of tx's inputs as
	// they stand in this world state, the value a fee calculation (reward
	// = blockReward + inputs - outputs) needs and ContainsAllInputs alone
	// cannot provide. It errors under the same conditions Apply would
	// reject tx for.
	TotalInputAmount(tx *Transaction) (*uint256.Int, error)

	// Apply executes tx against this world state and returns the resulting
	// world state. Script execution is itself out of scope; this is the
	// seam the pure function (WorldState, Tx) -> Result<WorldState> lives
	// behind.
	Apply(tx *Transaction) (WorldState, error)

	// Root returns the trie root hash addressing this world state.
	Root() Hash
}

// TrieStorage is the versioned key/value map backing WorldState, with MVCC
// by root hash. Its implementation is an out-of-scope collaborator.
type TrieStorage interface {
	Put(root Hash, key, value []byte) (Hash, error)
	Get(root Hash, key []byte) ([]byte, error)
	Delete(root Hash, key []byte) (Hash, error)
	Commit(root Hash) (Hash, error)
}

// WorldStateStore resolves the WorldState addressed by a trie root hash, so
// BlockChain can reconstruct "the world state as of block X" from the root
// it persisted at acceptance time without owning trie-walking itself.
type WorldStateStore interface {
	AtRoot(root Hash) (WorldState, error)
}

// Miner is the out-of-scope mining-worker collaborator: it consumes
// BlockTemplates produced by BlockTemplateBuilder and reports back solved
// nonces.
type Miner interface {
	Start()
	Stop()
	SubmitSolution(chainIdx ChainIndex, nonce Hash) (*Block, error)
}

// TxHandler is the out-of-scope gossip collaborator responsible for relaying
// transactions to peers once MemPool has accepted them.
type TxHandler interface {
	Broadcast(txs []*Transaction) error
}

// BlockChainHandler is the out-of-scope gossip collaborator responsible for
// relaying newly accepted blocks to peers.
type BlockChainHandler interface {
	AddBlock(block *Block, origin Hash) error
}

// MetricsSink is the thin, process-wide metrics collaborator the core is
// handed at construction (spec.md SS9's "thin metrics sink trait"). It is
// implemented concretely by infrastructure/metrics, with a no-op default so
// the core never hard-depends on a metrics backend being wired.
type MetricsSink interface {
	IncCounter(name string, labels ...string)
	ObserveHistogram(name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}
