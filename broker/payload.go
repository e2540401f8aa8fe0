// Package broker implements spec.md SS4.10: the per-peer BrokerHandler
// state machine (HandShaking -> Exchanging -> Closed), running the
// handshake, ping/pong keepalive, and sync-locator conversations described
// there. The TCP wire encoding those payloads travel over is out of scope
// (spec.md SS1's Non-goals); Transport abstracts it away so this package
// only owns session bookkeeping and state transitions.
//
// Grounded on the teacher's app/protocol/flows/handshake and
// app/protocol/flows/v5/ping packages: one goroutine per conversation,
// a done-channel/errgroup join, and a ticker-driven ping loop using
// DequeueWithTimeout-style receive-with-deadline semantics.
package broker

import "github.com/liuhongchao/alephium/domain/consensus/model"

// Hello is the HandShaking state's only valid inbound/outbound payload.
type Hello struct {
	CliqueID model.CliqueID
	Broker   model.BrokerInfo
}

// Ping carries a nonce the peer must echo back in a matching Pong.
type Ping struct {
	Nonce     uint64
	Timestamp uint64
}

// Pong answers a Ping with the same nonce.
type Pong struct {
	Nonce uint64
}

// SyncLocator requests the inventory of hashes chain has beyond the tips
// the sender already claims to know, per spec.md SS4.10's sync conversation.
type SyncLocator struct {
	Chain   model.ChainIndex
	Locator []model.Hash
}

// SyncInventory answers a SyncLocator with the hashes the responder has
// beyond the requester's locator, capped by numOfSyncBlocksLimit.
type SyncInventory struct {
	Chain  model.ChainIndex
	Hashes []model.Hash
}
