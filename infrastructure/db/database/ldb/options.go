// Package ldb wraps a single goleveldb database as the node's only concrete
// KV engine (spec.md SS6's persisted-state column families), grounded on
// the teacher's infrastructure/db/database/ldb tuning.
package ldb

import "github.com/syndtr/goleveldb/leveldb/opt"

var defaultOptions = opt.Options{
	Compression:            opt.NoCompression,
	BlockCacheCapacity:     256 * opt.MiB,
	WriteBuffer:            128 * opt.MiB,
	DisableSeeksCompaction: true,
}

// options returns the opt.Options every column family's underlying prefix
// space is opened with. A single physical database backs every family, so
// this tuning applies uniformly rather than per-family.
func options() *opt.Options {
	return &defaultOptions
}
