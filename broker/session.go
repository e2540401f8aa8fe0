package broker

import (
	"context"
	"time"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/misbehavior"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SyncHandler answers a Session's sync conversation for one owned chain:
// what the local side already has (Locator), what a peer's locator is
// missing (Inventory), and how to go fetch hashes a peer's inventory
// revealed (FetchMissing). Actually retrieving block bodies over the wire
// is out of scope; FetchMissing is the seam a real broker would hang that
// off of.
type SyncHandler interface {
	Locator(chain model.ChainIndex) []model.Hash
	Inventory(chain model.ChainIndex, locator []model.Hash) []model.Hash
	FetchMissing(chain model.ChainIndex, hashes []model.Hash) error
}

// Config carries spec.md SS6's network.* options a Session needs.
type Config struct {
	HandshakeDuration time.Duration
	PingFrequency     time.Duration
	RetryTimeout      time.Duration
	Chains            []model.ChainIndex
}

// Session drives one peer connection through spec.md SS4.10's state
// machine. It is not safe for concurrent use beyond the goroutines Run
// itself starts.
type Session struct {
	config      Config
	transport   Transport
	peer        string
	local       model.BrokerInfo
	sync        SyncHandler
	misbehavior *misbehavior.Storage

	state State
}

// New creates a Session for one accepted or dialed connection. misbehaviorStore
// may be nil, in which case infractions are silently dropped (used by tests
// that don't care about ban bookkeeping).
func New(config Config, transport Transport, peer string, local model.BrokerInfo, sync SyncHandler, misbehaviorStore *misbehavior.Storage) *Session {
	return &Session{
		config:      config,
		transport:   transport,
		peer:        peer,
		local:       local,
		sync:        sync,
		misbehavior: misbehaviorStore,
		state:       HandShaking,
	}
}

// State reports the Session's current lifecycle stage.
func (s *Session) State() State {
	return s.state
}

// Run executes the full session lifecycle: handshake, then the ping and
// sync conversations concurrently, until either fails or the caller's
// context is cancelled. It always leaves the Session Closed before
// returning, matching spec.md SS4.10's terminal-Closed guarantee.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()

	if err := s.handshake(); err != nil {
		return err
	}
	s.state = Exchanging
	log.Debugf("peer %s handshake complete, entering Exchanging", s.peer)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.runPing(gctx) })
	group.Go(func() error { return s.runSync(gctx) })
	return group.Wait()
}

// handshake sends this broker's Hello and waits for the peer's, per
// spec.md SS4.10: any non-Hello inbound payload is Spamming, and a
// silent peer past handshakeDuration is a RequestTimeout.
func (s *Session) handshake() error {
	if err := s.transport.Send(Hello{CliqueID: s.local.CliqueID, Broker: s.local}); err != nil {
		return errors.Wrap(err, "sending Hello")
	}

	payload, err := s.transport.Receive(s.config.HandshakeDuration)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			s.report(misbehavior.ScoreRequestTimeout)
			return errors.Wrap(err, "handshake timed out waiting for Hello")
		}
		return errors.Wrap(err, "receiving Hello")
	}

	if _, ok := payload.(Hello); !ok {
		s.report(misbehavior.ScoreSpamming)
		return errors.Errorf("expected Hello during handshake, got %T", payload)
	}
	return nil
}

// runPing sends a Ping every PingFrequency and requires a matching Pong
// before the next tick; a missed or mismatched Pong reports the peer and
// ends the session, per spec.md SS4.10.
func (s *Session) runPing(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PingFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		nonce := model.NowMillis()
		if err := s.transport.Send(Ping{Nonce: nonce, Timestamp: nonce}); err != nil {
			return errors.Wrap(err, "sending Ping")
		}

		payload, err := s.transport.Receive(s.config.PingFrequency)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				s.report(misbehavior.ScoreInvalidPingPong)
				return errors.Wrap(err, "Pong not received before next Ping tick")
			}
			return errors.Wrap(err, "receiving Pong")
		}

		pong, ok := payload.(Pong)
		if !ok || pong.Nonce != nonce {
			s.report(misbehavior.ScoreInvalidPingPong)
			return errors.Errorf("invalid Pong for nonce %d: %+v", nonce, payload)
		}
	}
}

// runSync runs the one-shot inventory exchange of spec.md SS4.10 for every
// chain this broker owns: send a locator, receive the peer's answering
// inventory, then hand any newly-revealed hashes to FetchMissing.
func (s *Session) runSync(ctx context.Context) error {
	for _, chain := range s.config.Chains {
		if err := ctx.Err(); err != nil {
			return nil
		}

		locator := s.sync.Locator(chain)
		if err := s.transport.Send(SyncLocator{Chain: chain, Locator: locator}); err != nil {
			return errors.Wrapf(err, "sending SyncLocator for %s", chain)
		}

		payload, err := s.transport.Receive(s.config.RetryTimeout)
		if err != nil {
			return errors.Wrapf(err, "receiving SyncInventory for %s", chain)
		}
		inventory, ok := payload.(SyncInventory)
		if !ok || inventory.Chain != chain {
			s.report(misbehavior.ScoreMalformedMessage)
			return errors.Errorf("expected SyncInventory for %s, got %+v", chain, payload)
		}

		if len(inventory.Hashes) > 0 {
			if err := s.sync.FetchMissing(chain, inventory.Hashes); err != nil {
				return errors.Wrapf(err, "fetching missing hashes for %s", chain)
			}
		}
	}
	return nil
}

func (s *Session) report(delta int) {
	if s.misbehavior == nil {
		return
	}
	s.misbehavior.Update(s.peer, delta, model.NowMillis())
}

func (s *Session) close() {
	s.state = Closed
	log.Debugf("closing session with peer %s", s.peer)
	s.transport.Close()
}
