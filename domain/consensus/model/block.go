package model

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// CompactTarget is a compact (mantissa+exponent) encoding of a proof-of-work
// difficulty target, in the same family as Bitcoin's "bits" field.
type CompactTarget uint32

// BlockHeader is the DAG-linking, proof-of-work-bearing part of a block.
// Deps has exactly NumDeps(groups) entries; see DepChainIndex for their
// layout.
type BlockHeader struct {
	Deps      []Hash
	TxsRoot   Hash
	Timestamp uint64 // monotonic milliseconds since epoch
	Target    CompactTarget
	Nonce     uint256.Int
}

// ChainIndex derives the chain this header belongs to from its own hash,
// following the "hash(header) mod G*G" rule, with the hash read as a
// big-endian integer.
func (h *BlockHeader) ChainIndex(groups int) ChainIndex {
	return HeaderHashChainIndex(h.Hash(), groups)
}

// HeaderHashChainIndex derives a chain index from an already-computed header
// hash, avoiding recomputation when the hash is known.
func HeaderHashChainIndex(hash Hash, groups int) ChainIndex {
	n := uint64(NumChains(groups))
	var flat uint64
	for _, b := range hash {
		flat = (flat<<8 | uint64(b)) % n
	}
	return ChainIndexFromFlattened(int(flat), groups)
}

// DirectParent returns the direct-parent hash of a header, the last entry of
// its deps vector.
func (h *BlockHeader) DirectParent() (Hash, error) {
	if len(h.Deps) == 0 {
		return ZeroHash, errors.New("header has no deps")
	}
	return h.Deps[len(h.Deps)-1], nil
}

// ValidateDepsLength checks the invariant deps.length == 2*groups-1.
func (h *BlockHeader) ValidateDepsLength(groups int) error {
	want := NumDeps(groups)
	if len(h.Deps) != want {
		return errors.Errorf("header has %d deps, want %d for %d groups", len(h.Deps), want, groups)
	}
	return nil
}

// Hash computes the header's identity hash over its serialized fields. It is
// a placeholder for whatever concrete digest (SHA-256/Blake3 family per
// spec) the wire-format layer eventually plugs in; the consensus core only
// needs it to be deterministic and collision-free for equality comparisons.
func (h *BlockHeader) Hash() Hash {
	return hashBlockHeader(h)
}

// Block is a BlockHeader plus its ordered transaction list. The last
// transaction is always the coinbase; the non-coinbase prefix carries user
// transactions in execution order (see mining.NonCoinbaseExecutionOrder).
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// Coinbase returns the block's coinbase transaction, its last entry.
func (b *Block) Coinbase() (*Transaction, error) {
	if len(b.Transactions) == 0 {
		return nil, errors.New("block has no transactions")
	}
	return b.Transactions[len(b.Transactions)-1], nil
}

// NonCoinbaseTransactions returns every transaction except the coinbase.
func (b *Block) NonCoinbaseTransactions() []*Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[:len(b.Transactions)-1]
}

// ChainIndex derives the chain this block belongs to.
func (b *Block) ChainIndex(groups int) ChainIndex {
	return b.Header.ChainIndex(groups)
}

// Hash is the block's identity, equal to its header's hash.
func (b *Block) Hash() Hash {
	return b.Header.Hash()
}

// NowMillis returns the current wall-clock time in milliseconds since the
// Unix epoch.
func NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
