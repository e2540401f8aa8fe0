package mempool

import (
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/model"
)

type poolEntry struct {
	tx         *model.Transaction
	insertedAt uint64
}

// SharedPool is spec.md SS4.6's bounded FIFO pool of not-yet-ready
// transactions: on overflow it evicts the oldest entry rather than
// rejecting admission (unlike PendingPool, whose stricter SS3 capacity
// invariant this pool is not subject to). Admission still rejects any
// transaction that double-spends an input already indexed here.
type SharedPool struct {
	mu       sync.RWMutex
	capacity int
	indexes  *TxIndexes
	order    []model.Hash
	byHash   map[model.Hash]*poolEntry
}

// NewSharedPool creates an empty SharedPool bounded at capacity entries.
func NewSharedPool(capacity int) *SharedPool {
	return &SharedPool{
		capacity: capacity,
		indexes:  NewTxIndexes(),
		byHash:   make(map[model.Hash]*poolEntry),
	}
}

// Add admits tx at timestamp now, evicting the oldest entries if this pushes
// the pool past capacity. It reports false without mutating the pool if any
// of tx's inputs double-spends an input already indexed here.
func (p *SharedPool) Add(tx *model.Transaction, now uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	if _, exists := p.byHash[hash]; exists {
		return true
	}
	for _, in := range tx.Inputs {
		if p.indexes.ContainsInput(in) {
			return false
		}
	}

	p.byHash[hash] = &poolEntry{tx: tx, insertedAt: now}
	p.order = append(p.order, hash)
	p.indexes.Add(tx)

	for len(p.order) > p.capacity {
		p.evictOldestLocked()
	}
	return true
}

func (p *SharedPool) evictOldestLocked() {
	if len(p.order) == 0 {
		return
	}
	oldest := p.order[0]
	p.order = p.order[1:]
	if entry, ok := p.byHash[oldest]; ok {
		p.indexes.Remove(entry.tx)
		delete(p.byHash, oldest)
	}
}

// Remove drops hash from the pool. Removing a hash not present is a no-op.
func (p *SharedPool) Remove(hash model.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *SharedPool) removeLocked(hash model.Hash) {
	entry, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	p.indexes.Remove(entry.tx)
	for i, h := range p.order {
		if h == hash {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether hash is currently held by this pool.
func (p *SharedPool) Contains(hash model.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// ContainsInput reports whether ref is spent by a transaction in this pool,
// the double-spend check MemPool.IsDoubleSpending folds over both pools.
func (p *SharedPool) ContainsInput(ref model.AssetOutputRef) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexes.ContainsInput(ref)
}

// Len returns the number of transactions currently held.
func (p *SharedPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// ExtractReady scans the pool for transactions whose inputs all resolve
// against worldState, removing them and returning their transactions in
// FIFO order for promotion into a PendingPool.
func (p *SharedPool) ExtractReady(worldState model.WorldState) ([]*model.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ready []*model.Transaction
	var remaining []model.Hash
	for _, hash := range p.order {
		entry := p.byHash[hash]
		ok, err := worldState.ContainsAllInputs(entry.tx)
		if err != nil {
			return nil, err
		}
		if ok {
			ready = append(ready, entry.tx)
			delete(p.byHash, hash)
			p.indexes.Remove(entry.tx)
		} else {
			remaining = append(remaining, hash)
		}
	}
	p.order = remaining
	return ready, nil
}
