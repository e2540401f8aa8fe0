package worldstate

import (
	"encoding/binary"

	"github.com/kaspanet/go-secp256k1"
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

// serializeEntry renders an (AssetOutputRef, TxOutput) pair into the flat
// byte encoding fed to the commitment, the same outpoint+entry
// concatenation the teacher's utxo.SerializeUTXO produces before handing it
// to consensusstatemanager's incremental multiset maintenance.
func serializeEntry(ref model.AssetOutputRef, out model.TxOutput) []byte {
	buf := make([]byte, 0, model.HashSize+4+32+len(out.LockupScript)+len(out.Tokens)*(model.HashSize+32))
	buf = append(buf, ref.TxHash[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], ref.OutputIndex)
	buf = append(buf, idx[:]...)
	amount := out.Amount.Bytes32()
	buf = append(buf, amount[:]...)
	buf = append(buf, out.LockupScript...)
	for _, tok := range out.Tokens {
		buf = append(buf, tok.ID[:]...)
		tokAmount := tok.Amount.Bytes32()
		buf = append(buf, tokAmount[:]...)
	}
	return buf
}

// commitment wraps secp256k1's elliptic-curve multiset hash: an
// order-independent, incrementally-updatable commitment to a set of
// entries. Adding or removing one entry updates Root() without rehashing
// the rest of the set, unlike a sorted-and-rehashed digest.
//
// Grounded on the teacher's domain/consensus/utils/multiset, which wraps
// the same github.com/kaspanet/go-secp256k1 MultiSet to commit to its own
// UTXO set; consensusstatemanager.calculateMultiset's "remove spent inputs,
// add new outputs" update sequence is mirrored by UTXOWorldState.Apply.
type commitment struct {
	ms *secp256k1.MultiSet
}

func newCommitment() commitment {
	return commitment{ms: secp256k1.NewMultiset()}
}

// clone snapshots the commitment by value, the same shallow-copy Clone the
// teacher's multiset.Clone performs, cheap because MultiSet is a single
// elliptic-curve point rather than an accumulated buffer.
func (c commitment) clone() commitment {
	msClone := *c.ms
	return commitment{ms: &msClone}
}

func (c commitment) add(ref model.AssetOutputRef, out model.TxOutput) {
	c.ms.Add(serializeEntry(ref, out))
}

func (c commitment) remove(ref model.AssetOutputRef, out model.TxOutput) {
	c.ms.Remove(serializeEntry(ref, out))
}

func (c commitment) root() model.Hash {
	finalized := c.ms.Finalize()
	var h model.Hash
	copy(h[:], finalized[:])
	return h
}
