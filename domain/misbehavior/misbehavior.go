// Package misbehavior implements spec.md SS4.9: a per-IP penalty/ban state
// machine with score decay, so the broker layer can throttle and eventually
// disconnect a misbehaving peer without an external moderation service.
//
// Grounded on the teacher's peer.BanScore* constants (peer/banscores.go) for
// the infraction-weight convention this package's Score constants follow;
// the Penalty/Banned state machine itself has no direct teacher analogue
// (kaspad bans outright past a single threshold with no decay), so it
// follows spec.md SS4.9's two-state design directly.
package misbehavior

import (
	"sync"
)

// Infraction weights an update(peer, delta) call carries. Grounded on the
// teacher's ban-score conventions: malformed protocol framing is minor,
// invalid consensus data is severe.
const (
	ScoreMalformedMessage   = 10
	ScoreRequestTimeout     = 20
	ScoreInvalidPingPong    = 20
	ScoreSpamming           = 50
	ScoreInvalidBlock       = 100
	ScoreInvalidTransaction = 100
)

// Config carries spec.md SS6's network.* ban parameters.
type Config struct {
	BanThreshold       int
	BanDuration        uint64 // milliseconds
	PenaltyForgiveness int
	PenaltyFrequency   uint64 // milliseconds
}

// DefaultConfig returns reasonable defaults in the absence of an explicit
// network configuration.
func DefaultConfig() Config {
	return Config{
		BanThreshold:       100,
		BanDuration:        24 * 60 * 60 * 1000,
		PenaltyForgiveness: 1,
		PenaltyFrequency:   10 * 60 * 1000,
	}
}

// State is the state of one peer's misbehavior record: either accruing
// Penalty or serving a Banned sentence.
type State struct {
	Penalty   int
	UpdatedAt uint64
	Banned    bool
	Until     uint64
}

// Storage is a per-IP map of misbehavior State, guarded by a single lock
// per spec.md SS4.9 (reads are infrequent enough not to warrant an RWMutex
// here, unlike the mempool pools).
type Storage struct {
	config Config

	mu      sync.Mutex
	entries map[string]*State
}

// New creates an empty Storage.
func New(config Config) *Storage {
	return &Storage{config: config, entries: make(map[string]*State)}
}

// Update adds delta to peer's penalty score, transitioning to Banned if the
// resulting score meets the configured threshold.
func (s *Storage) Update(peer string, delta int, now uint64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.readLocked(peer, now)
	state.Penalty += delta
	state.UpdatedAt = now
	if state.Penalty >= s.config.BanThreshold {
		state.Banned = true
		state.Until = now + s.config.BanDuration
		log.Warnf("banning peer %s until %d (penalty %d reached threshold %d)", peer, state.Until, state.Penalty, s.config.BanThreshold)
	}
	s.entries[peer] = state
	return *state
}

// Get returns peer's current state, applying ban-expiry and penalty-decay
// rewrites as a side effect of the read (spec.md SS4.9).
func (s *Storage) Get(peer string, now uint64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.readLocked(peer, now)
	s.entries[peer] = state
	return *state
}

// IsBanned reports whether peer is currently serving a ban.
func (s *Storage) IsBanned(peer string, now uint64) bool {
	return s.Get(peer, now).Banned
}

// readLocked returns peer's state after applying expiry and decay, without
// storing the rewritten entry (callers decide whether to persist it).
func (s *Storage) readLocked(peer string, now uint64) *State {
	existing, ok := s.entries[peer]
	if !ok {
		return &State{UpdatedAt: now}
	}
	state := *existing

	if state.Banned {
		if now >= state.Until {
			state = State{Penalty: 0, UpdatedAt: now}
		}
		return &state
	}

	if s.config.PenaltyFrequency > 0 && state.Penalty > 0 {
		elapsed := now - state.UpdatedAt
		units := elapsed / s.config.PenaltyFrequency
		if units > 0 {
			state.Penalty -= int(units) * s.config.PenaltyForgiveness
			if state.Penalty < 0 {
				state.Penalty = 0
			}
			state.UpdatedAt = now
		}
	}
	return &state
}
