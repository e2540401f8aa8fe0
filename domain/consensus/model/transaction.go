package model

import "github.com/holiman/uint256"

// AssetOutputRef identifies an unspent transaction output by the hash of the
// transaction that created it and the output's position within that
// transaction's FixedOutputs.
type AssetOutputRef struct {
	TxHash      Hash
	OutputIndex uint32
}

// ContractOutputRef identifies a contract-owned output. It shares the same
// shape as AssetOutputRef but the two are disjoint per spec.md SS3: a ref
// resolved against the asset-output index is never looked up in contract
// state and vice versa.
type ContractOutputRef struct {
	TxHash      Hash
	OutputIndex uint32
}

// Token is a secondary asset amount carried alongside the primary native
// amount in a TxOutput.
type Token struct {
	ID     Hash
	Amount uint256.Int
}

// LockupScript gates who may spend a TxOutput. Script execution itself is an
// out-of-scope collaborator (spec.md SS1); the consensus core treats it as
// opaque bytes it can hash and compare, never interpret.
type LockupScript []byte

// TxOutput is a single spendable (or already-spent) output.
type TxOutput struct {
	Amount       uint256.Int
	LockupScript LockupScript
	Tokens       []Token
}

// TxTemplate is the unsigned transaction body plus its signatures, without
// the executed-outputs tail that a full Transaction carries once VM
// execution (an out-of-scope collaborator) has run.
type TxTemplate struct {
	Inputs       []AssetOutputRef
	FixedOutputs []TxOutput
	Script       []byte
	Signatures   [][]byte
}

// Transaction is an unsigned body plus signatures. Non-coinbase transactions
// carry at least one input; the coinbase transaction (last in a block's
// transaction list) carries none.
type Transaction struct {
	Inputs       []AssetOutputRef
	FixedOutputs []TxOutput
	Script       []byte
	Signatures   [][]byte

	hash    Hash
	hasHash bool
}

// Hash returns the transaction's identity hash, memoized after first
// computation since transactions are immutable once constructed.
func (tx *Transaction) Hash() Hash {
	if !tx.hasHash {
		tx.hash = hashTransaction(tx)
		tx.hasHash = true
	}
	return tx.hash
}

// IsCoinbase reports whether tx has no inputs, the shape of a coinbase
// transaction. A block's coinbase is always its last transaction (spec.md
// SS3); this method identifies the shape, not the position.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// HasScript reports whether tx carries a script, relevant to
// mining.NonCoinbaseExecutionOrder's front-running mitigation.
func (tx *Transaction) HasScript() bool {
	return len(tx.Script) > 0
}

// TotalOutputAmount sums the native-asset amount across all fixed outputs.
func (tx *Transaction) TotalOutputAmount() *uint256.Int {
	total := new(uint256.Int)
	for _, out := range tx.FixedOutputs {
		total.Add(total, &out.Amount)
	}
	return total
}
