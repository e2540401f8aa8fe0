// Package mining implements spec.md SS4.8: assembling a mineable
// BlockTemplate from BlockFlow's best-deps vector, a chain's persisted
// world state, and a group's ready mempool transactions.
//
// Grounded on the teacher's domain/miningmanager/blocktemplatebuilder
// package shape (a dedicated BlockTemplateBuilder type wrapping the state
// it templates from); the non-coinbase execution-order shuffle has no
// teacher analogue, so it follows spec.md SS4.8's Fisher-Yates recipe
// directly.
package mining

import (
	"encoding/binary"

	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// NonCoinbaseExecutionOrder returns txs reordered per spec.md SS4.8's
// front-running mitigation: transactions carrying a script are shuffled
// with a Fisher-Yates walk seeded deterministically from parentHash and the
// candidate set itself, so any validator can rederive the same order from
// the block alone; plain transactions keep their original relative order
// and are appended after the scripted ones.
func NonCoinbaseExecutionOrder(parentHash model.Hash, txs []*model.Transaction) []*model.Transaction {
	var scripted, plain []*model.Transaction
	for _, tx := range txs {
		if tx.HasScript() {
			scripted = append(scripted, tx)
		} else {
			plain = append(plain, tx)
		}
	}
	if len(scripted) == 0 {
		return append(scripted, plain...)
	}

	mid := len(scripted) / 2
	last := len(scripted) - 1
	seed := xorHash(parentHash, scripted[0].Hash())
	seed = xorHash(seed, scripted[mid].Hash())
	seed = xorHash(seed, scripted[last].Hash())

	shuffled := append([]*model.Transaction(nil), scripted...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(seedUint64(seed) % uint64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		seed = shuffled[j].Hash()
	}

	return append(shuffled, plain...)
}

func xorHash(a, b model.Hash) model.Hash {
	var out model.Hash
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func seedUint64(h model.Hash) uint64 {
	return binary.BigEndian.Uint64(h[:8])
}
