package worldstate

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/liuhongchao/alephium/domain/consensus/model"
)

func coinbase(amount uint64) *model.Transaction {
	return &model.Transaction{FixedOutputs: []model.TxOutput{{Amount: *uint256.NewInt(amount), LockupScript: []byte("miner")}}}
}

func TestApplyCoinbaseThenSpendRoundTrips(t *testing.T) {
	state := Empty()
	cb := coinbase(100)

	next, err := state.Apply(cb)
	if err != nil {
		t.Fatalf("Apply coinbase: %+v", err)
	}
	utxo := next.(*UTXOWorldState)

	ref := model.AssetOutputRef{TxHash: cb.Hash(), OutputIndex: 0}
	ready, err := utxo.ContainsAllInputs(&model.Transaction{Inputs: []model.AssetOutputRef{ref}})
	if err != nil || !ready {
		t.Fatalf("ContainsAllInputs: ready=%v err=%+v", ready, err)
	}

	spend := &model.Transaction{
		Inputs:       []model.AssetOutputRef{ref},
		FixedOutputs: []model.TxOutput{{Amount: *uint256.NewInt(100), LockupScript: []byte("recipient")}},
	}
	after, err := utxo.Apply(spend)
	if err != nil {
		t.Fatalf("Apply spend: %+v", err)
	}
	afterUTXO := after.(*UTXOWorldState)

	if ready, _ := afterUTXO.ContainsAllInputs(&model.Transaction{Inputs: []model.AssetOutputRef{ref}}); ready {
		t.Fatalf("expected spent output to no longer be available")
	}
}

func TestApplyRejectsOutputsExceedingInputs(t *testing.T) {
	state := Empty()
	cb, _ := state.Apply(coinbase(50))
	utxo := cb.(*UTXOWorldState)
	ref := model.AssetOutputRef{TxHash: coinbase(50).Hash(), OutputIndex: 0}

	overspend := &model.Transaction{
		Inputs:       []model.AssetOutputRef{ref},
		FixedOutputs: []model.TxOutput{{Amount: *uint256.NewInt(1000), LockupScript: []byte("x")}},
	}
	if _, err := utxo.Apply(overspend); err == nil {
		t.Fatalf("expected an error spending more than the input carries")
	}
}

func TestRootIsOrderIndependent(t *testing.T) {
	base := Empty()
	a, _ := base.Apply(coinbase(1))
	b, _ := base.Apply(coinbase(2))

	viaAB, err := a.(*UTXOWorldState).Apply(coinbase(2))
	if err != nil {
		t.Fatalf("Apply: %+v", err)
	}
	viaBA, err := b.(*UTXOWorldState).Apply(coinbase(1))
	if err != nil {
		t.Fatalf("Apply: %+v", err)
	}
	if viaAB.Root() != viaBA.Root() {
		t.Fatalf("Root() differs by insertion order: %s vs %s", viaAB.Root(), viaBA.Root())
	}
}

func TestStoreResolvesRegisteredRoots(t *testing.T) {
	store := NewStore()
	cb, err := Empty().Apply(coinbase(5))
	if err != nil {
		t.Fatalf("Apply: %+v", err)
	}
	utxo := cb.(*UTXOWorldState)
	store.Register(utxo)

	resolved, err := store.AtRoot(utxo.Root())
	if err != nil {
		t.Fatalf("AtRoot: %+v", err)
	}
	if resolved.Root() != utxo.Root() {
		t.Fatalf("resolved root mismatch")
	}

	if _, err := store.AtRoot(model.Hash{0xff}); err == nil {
		t.Fatalf("expected an error resolving an unregistered root")
	}
}
