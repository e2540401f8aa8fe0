package hashchain

import (
	"testing"

	"github.com/liuhongchao/alephium/domain/consensus/model"
)

func testHash(b byte) model.Hash {
	var h model.Hash
	h[0] = b
	return h
}

func newTestChain(t *testing.T) (*HashChain, model.Hash) {
	t.Helper()
	genesis := testHash(0)
	chain := New(model.ChainIndex{From: 0, To: 0}, genesis, 1000, 0, 100)
	return chain, genesis
}

func TestAddGrowsHeightAndWeight(t *testing.T) {
	chain, genesis := newTestChain(t)

	b1 := testHash(1)
	err := chain.Add(b1, genesis, 2000, 0, model.NewWeight(10))
	if err != nil {
		t.Fatalf("Add: %+v", err)
	}

	height, err := chain.GetHeight(b1)
	if err != nil {
		t.Fatalf("GetHeight: %+v", err)
	}
	if height != 1 {
		t.Fatalf("height = %d, want 1", height)
	}

	weight, err := chain.GetWeight(b1)
	if err != nil {
		t.Fatalf("GetWeight: %+v", err)
	}
	if weight.Cmp(model.NewWeight(10)) != 0 {
		t.Fatalf("weight = %s, want 10", weight.String())
	}

	tips := chain.Tips()
	if len(tips) != 1 || tips[0] != b1 {
		t.Fatalf("tips = %v, want [%s]", tips, b1)
	}
	if chain.IsTip(genesis) {
		t.Fatalf("genesis should no longer be a tip")
	}
}

func TestAddMissingParent(t *testing.T) {
	chain, _ := newTestChain(t)
	orphan := testHash(2)
	unknownParent := testHash(9)

	err := chain.Add(orphan, unknownParent, 2000, 0, model.NewWeight(5))
	if err == nil {
		t.Fatalf("expected MissingParent error")
	}
	kind, ok := model.AsKindedError(err)
	if !ok || kind != model.KindMissingDependency {
		t.Fatalf("expected KindMissingDependency, got %v (ok=%v)", kind, ok)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	chain, genesis := newTestChain(t)
	b1 := testHash(1)

	if err := chain.Add(b1, genesis, 2000, 0, model.NewWeight(10)); err != nil {
		t.Fatalf("first Add: %+v", err)
	}
	if err := chain.Add(b1, genesis, 2000, 0, model.NewWeight(10)); err != nil {
		t.Fatalf("second Add: %+v", err)
	}
	if chain.NumHashes() != 2 {
		t.Fatalf("NumHashes = %d, want 2 (genesis + b1)", chain.NumHashes())
	}
}

func TestBestTipTieBreakByHash(t *testing.T) {
	chain, genesis := newTestChain(t)

	tipA := testHash(0xAA)
	tipB := testHash(0x01) // smaller than tipA

	if err := chain.Add(tipA, genesis, 2000, 0, model.NewWeight(10)); err != nil {
		t.Fatalf("Add tipA: %+v", err)
	}
	// second block also parented on genesis, forming a fork with equal weight
	if err := chain.Add(tipB, genesis, 2000, 0, model.NewWeight(10)); err != nil {
		t.Fatalf("Add tipB: %+v", err)
	}

	best, err := chain.BestTip()
	if err != nil {
		t.Fatalf("BestTip: %+v", err)
	}
	if best != tipB {
		t.Fatalf("BestTip = %s, want %s (smaller hash on weight tie)", best, tipB)
	}
}

func TestChainBackAndPredecessor(t *testing.T) {
	chain, genesis := newTestChain(t)
	b1 := testHash(1)
	b2 := testHash(2)

	if err := chain.Add(b1, genesis, 2000, 0, model.NewWeight(1)); err != nil {
		t.Fatalf("Add b1: %+v", err)
	}
	if err := chain.Add(b2, b1, 3000, 0, model.NewWeight(2)); err != nil {
		t.Fatalf("Add b2: %+v", err)
	}

	path, err := chain.ChainBack(b2, 0)
	if err != nil {
		t.Fatalf("ChainBack: %+v", err)
	}
	want := []model.Hash{genesis, b1, b2}
	if len(path) != len(want) {
		t.Fatalf("ChainBack = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("ChainBack[%d] = %s, want %s", i, path[i], want[i])
		}
	}

	pred, err := chain.GetPredecessor(b2, 1)
	if err != nil {
		t.Fatalf("GetPredecessor: %+v", err)
	}
	if pred != b1 {
		t.Fatalf("GetPredecessor = %s, want %s", pred, b1)
	}
}

func TestGetHashesAfter(t *testing.T) {
	chain, genesis := newTestChain(t)
	b1 := testHash(1)
	b2 := testHash(2)

	if err := chain.Add(b1, genesis, 2000, 0, model.NewWeight(1)); err != nil {
		t.Fatalf("Add b1: %+v", err)
	}
	if err := chain.Add(b2, b1, 3000, 0, model.NewWeight(2)); err != nil {
		t.Fatalf("Add b2: %+v", err)
	}

	after, err := chain.GetHashesAfter(genesis)
	if err != nil {
		t.Fatalf("GetHashesAfter: %+v", err)
	}
	if len(after) != 2 || after[0] != b1 || after[1] != b2 {
		t.Fatalf("GetHashesAfter = %v, want [%s %s]", after, b1, b2)
	}
}
