package mempool

import (
	"sort"
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// PendingPool is spec.md SS4.6's pool of transactions believed ready to
// mine: like SharedPool, bounded and rejecting admission once full, but its
// membership is continuously re-validated against the current world state
// rather than merely checked for double-spends on admission.
type PendingPool struct {
	mu       sync.RWMutex
	capacity int
	indexes  *TxIndexes
	order    []model.Hash
	byHash   map[model.Hash]*poolEntry
}

// NewPendingPool creates an empty PendingPool bounded at capacity entries.
func NewPendingPool(capacity int) *PendingPool {
	return &PendingPool{
		capacity: capacity,
		indexes:  NewTxIndexes(),
		byHash:   make(map[model.Hash]*poolEntry),
	}
}

// Add admits tx. It returns false without mutating the pool if tx
// double-spends an input already indexed here, or if the pool is already at
// capacity: callers must Remove a member before a full pool accepts another.
func (p *PendingPool) Add(tx *model.Transaction, now uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	if _, exists := p.byHash[hash]; exists {
		return true
	}
	if len(p.order) >= p.capacity {
		return false
	}
	for _, in := range tx.Inputs {
		if p.indexes.ContainsInput(in) {
			return false
		}
	}

	p.byHash[hash] = &poolEntry{tx: tx, insertedAt: now}
	p.order = append(p.order, hash)
	p.indexes.Add(tx)
	return true
}

// Remove drops hash from the pool. Removing a hash not present is a no-op.
func (p *PendingPool) Remove(hash model.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *PendingPool) removeLocked(hash model.Hash) {
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
func (p *PendingPool) Contains(hash model.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// ContainsInput reports whether ref is spent by a transaction in this pool.
func (p *PendingPool) ContainsInput(ref model.AssetOutputRef) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexes.ContainsInput(ref)
}

// Len returns the number of transactions currently held.
func (p *PendingPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// ExtractReadyTxs returns up to limit transactions (FIFO order) whose inputs
// all resolve against worldState, without removing them: BlockTemplateBuilder
// calls this to select candidates for a template, not to drain the pool (a
// template may end up unused if a competing block wins the race).
func (p *PendingPool) ExtractReadyTxs(worldState model.WorldState, limit int) ([]*model.Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []*model.Transaction
	for _, hash := range p.order {
		if limit >= 0 && len(result) >= limit {
			break
		}
		entry := p.byHash[hash]
		ok, err := worldState.ContainsAllInputs(entry.tx)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, entry.tx)
		}
	}
	return result, nil
}

// TakeOldTxs returns every entry with insertedAt below threshold, in
// ascending-timestamp order, for MemPool.Clean to drop as likely-superseded.
func (p *PendingPool) TakeOldTxs(threshold uint64) []*model.Transaction {
	p.mu.RLock()
	type aged struct {
		tx  *model.Transaction
		ts  uint64
	}
	var candidates []aged
	for _, hash := range p.order {
		entry := p.byHash[hash]
		if entry.insertedAt < threshold {
			candidates = append(candidates, aged{tx: entry.tx, ts: entry.insertedAt})
		}
	}
	p.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ts < candidates[j].ts })
	result := make([]*model.Transaction, len(candidates))
	for i, c := range candidates {
		result[i] = c.tx
	}
	return result
}

// RevalidateAgainst drops every member whose inputs no longer all resolve
// against worldState, reporting the dropped transactions.
func (p *PendingPool) RevalidateAgainst(worldState model.WorldState) ([]*model.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dropped []*model.Transaction
	var remaining []model.Hash
	for _, hash := range p.order {
		entry := p.byHash[hash]
		ok, err := worldState.ContainsAllInputs(entry.tx)
		if err != nil {
			return nil, err
		}
		if ok {
			remaining = append(remaining, hash)
			continue
		}
		dropped = append(dropped, entry.tx)
		delete(p.byHash, hash)
		p.indexes.Remove(entry.tx)
	}
	p.order = remaining
	return dropped, nil
}
