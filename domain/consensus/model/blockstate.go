package model

import "math/big"

// Weight is cumulative proof-of-work from genesis, compared with big.Int
// precision since raw work sums quickly exceed 64 bits at real difficulty.
type Weight struct {
	big.Int
}

// NewWeight constructs a Weight from an int64, convenient for tests and
// genesis nodes.
func NewWeight(v int64) *Weight {
	w := &Weight{}
	w.SetInt64(v)
	return w
}

// Add returns a new Weight equal to w+other, without mutating either
// operand.
func (w *Weight) Add(other *Weight) *Weight {
	sum := &Weight{}
	sum.Int.Add(&w.Int, &other.Int)
	return sum
}

// Cmp compares two weights, returning -1, 0, or +1 as with big.Int.Cmp.
func (w *Weight) Cmp(other *Weight) int {
	return w.Int.Cmp(&other.Int)
}

// TargetToWork converts a compact difficulty target into the amount of
// expected proof-of-work it represents: work = 2^256 / (target+1). This is
// the standard Bitcoin-family conversion, used to accumulate chain weight.
func TargetToWork(target CompactTarget) *Weight {
	targetBig := CompactToBig(target)
	if targetBig.Sign() <= 0 {
		return NewWeight(0)
	}
	// numerator = 2^256
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	denominator := new(big.Int).Add(targetBig, big.NewInt(1))
	work := new(big.Int).Div(numerator, denominator)
	w := &Weight{}
	w.Int = *work
	return w
}

// BlockState is the persisted per-block record backing a HashChain/
// HeaderChain node: its height, cumulative weight, and world-state trie
// root once its block body has been executed.
type BlockState struct {
	Height         uint64
	Weight         *Weight
	WorldStateRoot Hash
}
