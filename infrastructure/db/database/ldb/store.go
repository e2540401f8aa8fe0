package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// Family names the logical column families spec.md SS6 lists. goleveldb has
// no native column-family concept, so each is a key prefix over one shared
// database, the same trick the teacher's ffldb/leveldb backends both use to
// keep a single file handle.
type Family string

const (
	FamilyBlockBodies Family = "block-bodies/"
	FamilyHeaders     Family = "headers/"
	FamilyBlockState  Family = "block-state/"
	FamilyTrie        Family = "trie/"
	FamilyNodeState   Family = "node-state/"
)

// Store is the node's sole concrete KV engine: one database handle, with
// every Family addressed through prefixed keys. cmd/blockflownode opens it;
// BlockChain, HeaderChain and the world state keep their data in memory and
// do not read or write it.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, options())
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb database at %s", path)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func familyKey(family Family, key []byte) []byte {
	return append([]byte(family), key...)
}

// Get reads key from family, returning (nil, false, nil) on a miss.
func (s *Store) Get(family Family, key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(familyKey(family, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting %s/%x", family, key)
	}
	return value, true, nil
}

// Put writes key=value into family.
func (s *Store) Put(family Family, key, value []byte) error {
	if err := s.db.Put(familyKey(family, key), value, nil); err != nil {
		return errors.Wrapf(err, "putting %s/%x", family, key)
	}
	return nil
}

// Entry is one write in an AtomicBatch call.
type Entry struct {
	Family Family
	Key    []byte
	Value  []byte
}

// AtomicBatch commits entries as a single atomic write, so a multi-key
// update lands in full or not at all. No domain package calls it.
func (s *Store) AtomicBatch(entries []Entry) error {
	batch := new(leveldb.Batch)
	for _, e := range entries {
		batch.Put(familyKey(e.Family, e.Key), e.Value)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, "committing atomic batch")
	}
	return nil
}

// Iterate calls fn for every key in family with the family prefix
// stripped, in ascending key order, stopping early if fn returns false.
func (s *Store) Iterate(family Family, fn func(key, value []byte) bool) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	prefix := []byte(family)
	for ok := iter.Seek(prefix); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			break
		}
		if !fn(key[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}
