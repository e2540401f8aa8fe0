package broker

import (
	"context"
	"testing"
	"time"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/domain/misbehavior"
)

type fakeTransport struct {
	outbox chan interface{}
	inbox  chan interface{}
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{outbox: make(chan interface{}, 8), inbox: make(chan interface{}, 8)}
}

func (t *fakeTransport) Send(payload interface{}) error {
	t.outbox <- payload
	return nil
}

func (t *fakeTransport) Receive(timeout time.Duration) (interface{}, error) {
	select {
	case p := <-t.inbox:
		return p, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

type fakeSyncHandler struct {
	fetched map[model.ChainIndex][]model.Hash
}

func (h *fakeSyncHandler) Locator(chain model.ChainIndex) []model.Hash { return nil }
func (h *fakeSyncHandler) Inventory(chain model.ChainIndex, locator []model.Hash) []model.Hash {
	return nil
}
func (h *fakeSyncHandler) FetchMissing(chain model.ChainIndex, hashes []model.Hash) error {
	if h.fetched == nil {
		h.fetched = map[model.ChainIndex][]model.Hash{}
	}
	h.fetched[chain] = hashes
	return nil
}

func testBrokerInfo() model.BrokerInfo {
	return model.BrokerInfo{CliqueID: model.NewCliqueID(), Config: model.BrokerConfig{Groups: 1, BrokerNum: 1, BrokerID: 0}}
}

func TestSessionHandshakeThenPingPongThenCancel(t *testing.T) {
	transport := newFakeTransport()
	config := Config{HandshakeDuration: 200 * time.Millisecond, PingFrequency: 10 * time.Millisecond, RetryTimeout: 100 * time.Millisecond}
	s := New(config, transport, "peer1", testBrokerInfo(), &fakeSyncHandler{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if _, ok := (<-transport.outbox).(Hello); !ok {
		t.Fatalf("expected outbound Hello")
	}
	transport.inbox <- Hello{CliqueID: model.NewCliqueID(), Broker: testBrokerInfo()}

	ping, ok := (<-transport.outbox).(Ping)
	if !ok {
		t.Fatalf("expected outbound Ping")
	}
	transport.inbox <- Pong{Nonce: ping.Nonce}

	// Drain a couple more ping/pong rounds to prove the loop keeps running.
	for i := 0; i < 2; i++ {
		ping = (<-transport.outbox).(Ping)
		transport.inbox <- Pong{Nonce: ping.Nonce}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after clean cancel: %+v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if s.State() != Closed {
		t.Fatalf("State() = %s, want Closed", s.State())
	}
	if !transport.closed {
		t.Fatalf("expected transport to be closed")
	}
}

func TestSessionHandshakeRejectsNonHelloAsSpamming(t *testing.T) {
	transport := newFakeTransport()
	config := Config{HandshakeDuration: 200 * time.Millisecond, PingFrequency: time.Second, RetryTimeout: time.Second}
	store := misbehavior.New(misbehavior.DefaultConfig())
	s := New(config, transport, "peer2", testBrokerInfo(), &fakeSyncHandler{}, store)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	<-transport.outbox // the Hello we sent
	transport.inbox <- Ping{Nonce: 1}

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected Run to fail on non-Hello handshake payload")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if state := store.Get("peer2", model.NowMillis()); state.Penalty != misbehavior.ScoreSpamming {
		t.Fatalf("Penalty = %d, want %d", state.Penalty, misbehavior.ScoreSpamming)
	}
}

func TestSessionHandshakeTimeoutReportsRequestTimeout(t *testing.T) {
	transport := newFakeTransport()
	config := Config{HandshakeDuration: 20 * time.Millisecond, PingFrequency: time.Second, RetryTimeout: time.Second}
	store := misbehavior.New(misbehavior.DefaultConfig())
	s := New(config, transport, "peer3", testBrokerInfo(), &fakeSyncHandler{}, store)

	err := s.Run(context.Background())
	if err == nil {
		t.Fatalf("expected Run to fail on handshake timeout")
	}
	if state := store.Get("peer3", model.NowMillis()); state.Penalty != misbehavior.ScoreRequestTimeout {
		t.Fatalf("Penalty = %d, want %d", state.Penalty, misbehavior.ScoreRequestTimeout)
	}
}

func TestSessionPingTimeoutClosesSession(t *testing.T) {
	transport := newFakeTransport()
	config := Config{HandshakeDuration: 200 * time.Millisecond, PingFrequency: 10 * time.Millisecond, RetryTimeout: 20 * time.Millisecond}
	store := misbehavior.New(misbehavior.DefaultConfig())
	s := New(config, transport, "peer4", testBrokerInfo(), &fakeSyncHandler{}, store)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	<-transport.outbox // Hello
	transport.inbox <- Hello{CliqueID: model.NewCliqueID(), Broker: testBrokerInfo()}
	<-transport.outbox // Ping; deliberately never answered

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected Run to fail on ping timeout")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if state := store.Get("peer4", model.NowMillis()); state.Penalty != misbehavior.ScoreInvalidPingPong {
		t.Fatalf("Penalty = %d, want %d", state.Penalty, misbehavior.ScoreInvalidPingPong)
	}
}

func TestSessionSyncExchangesLocatorAndFetchesMissing(t *testing.T) {
	transport := newFakeTransport()
	chain := model.ChainIndex{From: 0, To: 0}
	handler := &fakeSyncHandler{}
	config := Config{
		HandshakeDuration: 200 * time.Millisecond,
		PingFrequency:     time.Second,
		RetryTimeout:      500 * time.Millisecond,
		Chains:            []model.ChainIndex{chain},
	}
	s := New(config, transport, "peer5", testBrokerInfo(), handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-transport.outbox // Hello
	transport.inbox <- Hello{CliqueID: model.NewCliqueID(), Broker: testBrokerInfo()}

	locatorMsg, ok := (<-transport.outbox).(SyncLocator)
	if !ok || locatorMsg.Chain != chain {
		t.Fatalf("expected outbound SyncLocator for %s, got %+v", chain, locatorMsg)
	}
	wantHashes := []model.Hash{{1}, {2}}
	transport.inbox <- SyncInventory{Chain: chain, Hashes: wantHashes}

	deadline := time.After(time.Second)
	for {
		if got, ok := handler.fetched[chain]; ok {
			if len(got) != len(wantHashes) {
				t.Fatalf("FetchMissing hashes = %v, want %v", got, wantHashes)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("FetchMissing was never called")
		case <-time.After(time.Millisecond):
		}
	}
}
