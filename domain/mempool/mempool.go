package mempool

import (
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// Config bounds one group's mempool, per spec.md SS6's mempool.* options.
type Config struct {
	SharedPoolCapacity  int
	PendingPoolCapacity int
	TxMaxNumberPerBlock int
	CleanFrequency      uint64 // milliseconds
}

// DefaultConfig returns spec.md SS6's documented defaults.
func DefaultConfig() Config {
	return Config{
		SharedPoolCapacity:  1000,
		PendingPoolCapacity: 1000,
		TxMaxNumberPerBlock: 1000,
		CleanFrequency:      10 * 60 * 1000,
	}
}

// MemPool is spec.md SS4.7's per-group facade over a SharedPool and a
// PendingPool: Add routes a transaction to whichever pool it's ready for,
// Clean promotes/ages/confirms entries as the chain advances.
type MemPool struct {
	config  Config
	shared  *SharedPool
	pending *PendingPool
}

// New creates a MemPool for one group, per config.
func New(config Config) *MemPool {
	return &MemPool{
		config:  config,
		shared:  NewSharedPool(config.SharedPoolCapacity),
		pending: NewPendingPool(config.PendingPoolCapacity),
	}
}

// Add routes tx to the pending pool if it is ready against worldState,
// otherwise to the shared pool. It reports false if tx double-spends an
// input already held by whichever pool it was routed to.
func (mp *MemPool) Add(tx *model.Transaction, worldState model.WorldState, now uint64) (bool, error) {
	ready, err := worldState.ContainsAllInputs(tx)
	if err != nil {
		return false, err
	}
	if ready {
		admitted := mp.pending.Add(tx, now)
		log.Debugf("tx %s routed to pending pool, admitted=%v", tx.Hash(), admitted)
		return admitted, nil
	}
	admitted := mp.shared.Add(tx, now)
	log.Debugf("tx %s routed to shared pool, admitted=%v", tx.Hash(), admitted)
	return admitted, nil
}

// IsDoubleSpending reports whether any of tx's inputs is already spent by a
// transaction in either pool. Exposed so the broker layer can reject gossip
// without paying full validation cost (spec.md SS4.7).
func (mp *MemPool) IsDoubleSpending(tx *model.Transaction) bool {
	for _, in := range tx.Inputs {
		if mp.shared.ContainsInput(in) || mp.pending.ContainsInput(in) {
			return true
		}
	}
	return false
}

// ExtractReadyTxs returns up to limit pending transactions ready to mine,
// for BlockTemplateBuilder.
func (mp *MemPool) ExtractReadyTxs(worldState model.WorldState, limit int) ([]*model.Transaction, error) {
	return mp.pending.ExtractReadyTxs(worldState, limit)
}

// Clean runs spec.md SS4.7's periodic maintenance pass:
//  1. promote shared transactions now ready against worldState into pending;
//  2. drop pending transactions older than now-cleanFrequency, or whose
//     inputs no longer resolve against worldState;
//  3. remove every transaction confirmed in confirmedHashes from both pools.
func (mp *MemPool) Clean(now uint64, worldState model.WorldState, confirmedHashes []model.Hash) error {
	promoted, err := mp.shared.ExtractReady(worldState)
	if err != nil {
		return err
	}
	for _, tx := range promoted {
		mp.pending.Add(tx, now)
	}

	threshold := uint64(0)
	if now > mp.config.CleanFrequency {
		threshold = now - mp.config.CleanFrequency
	}
	for _, tx := range mp.pending.TakeOldTxs(threshold) {
		mp.pending.Remove(tx.Hash())
	}
	if _, err := mp.pending.RevalidateAgainst(worldState); err != nil {
		return err
	}

	for _, hash := range confirmedHashes {
		mp.shared.Remove(hash)
		mp.pending.Remove(hash)
	}
	return nil
}

// SharedLen and PendingLen report each pool's current size, for metrics and
// tests.
func (mp *MemPool) SharedLen() int  { return mp.shared.Len() }
func (mp *MemPool) PendingLen() int { return mp.pending.Len() }
