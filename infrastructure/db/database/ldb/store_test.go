package ldb

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Open: %+v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetPutRoundTrips(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Get(FamilyHeaders, []byte("missing")); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%+v", ok, err)
	}

	if err := store.Put(FamilyHeaders, []byte("h1"), []byte("header-bytes")); err != nil {
		t.Fatalf("Put: %+v", err)
	}
	value, ok, err := store.Get(FamilyHeaders, []byte("h1"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%+v", ok, err)
	}
	if string(value) != "header-bytes" {
		t.Fatalf("value = %q, want %q", value, "header-bytes")
	}
}

func TestFamiliesDoNotCollideOnSharedKeys(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(FamilyHeaders, []byte("k"), []byte("header")); err != nil {
		t.Fatalf("Put headers: %+v", err)
	}
	if err := store.Put(FamilyBlockBodies, []byte("k"), []byte("body")); err != nil {
		t.Fatalf("Put bodies: %+v", err)
	}

	headerVal, _, _ := store.Get(FamilyHeaders, []byte("k"))
	bodyVal, _, _ := store.Get(FamilyBlockBodies, []byte("k"))
	if string(headerVal) != "header" || string(bodyVal) != "body" {
		t.Fatalf("family collision: headers=%q bodies=%q", headerVal, bodyVal)
	}
}

func TestAtomicBatchCommitsAllEntriesTogether(t *testing.T) {
	store := openTestStore(t)

	err := store.AtomicBatch([]Entry{
		{Family: FamilyBlockBodies, Key: []byte("b1"), Value: []byte("body")},
		{Family: FamilyBlockState, Key: []byte("b1"), Value: []byte("state")},
	})
	if err != nil {
		t.Fatalf("AtomicBatch: %+v", err)
	}

	if _, ok, _ := store.Get(FamilyBlockBodies, []byte("b1")); !ok {
		t.Fatalf("expected block body to be committed")
	}
	if _, ok, _ := store.Get(FamilyBlockState, []byte("b1")); !ok {
		t.Fatalf("expected block state to be committed")
	}
}

func TestIterateVisitsOnlyMatchingFamilyInKeyOrder(t *testing.T) {
	store := openTestStore(t)
	for _, k := range []string{"a", "b", "c"} {
		if err := store.Put(FamilyTrie, []byte(k), []byte(k)); err != nil {
			t.Fatalf("Put: %+v", err)
		}
	}
	if err := store.Put(FamilyHeaders, []byte("a"), []byte("unrelated")); err != nil {
		t.Fatalf("Put: %+v", err)
	}

	var seen []string
	err := store.Iterate(FamilyTrie, func(key, value []byte) bool {
		seen = append(seen, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("Iterate: %+v", err)
	}
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Fatalf("seen = %v, want [a b c]", seen)
	}
}
