package misbehavior

import "testing"

func TestUpdatePastThresholdBans(t *testing.T) {
	s := New(Config{BanThreshold: 100, BanDuration: 1000, PenaltyForgiveness: 1, PenaltyFrequency: 100})

	state := s.Update("1.2.3.4", 50, 1000)
	if state.Banned {
		t.Fatalf("expected peer not yet banned at score %d", state.Penalty)
	}

	state = s.Update("1.2.3.4", 60, 1000)
	if !state.Banned {
		t.Fatalf("expected peer banned once score reaches threshold, got %+v", state)
	}
	if state.Until != 2000 {
		t.Fatalf("Until = %d, want 2000", state.Until)
	}
}

func TestBanExpiresBackToZeroPenalty(t *testing.T) {
	s := New(Config{BanThreshold: 10, BanDuration: 500, PenaltyForgiveness: 1, PenaltyFrequency: 100})

	s.Update("peerX", 10, 1000)
	if !s.IsBanned("peerX", 1000) {
		t.Fatalf("expected peerX banned immediately after crossing threshold")
	}

	// banDuration + 1 past the ban update.
	now := uint64(1000 + 500 + 1)
	if s.IsBanned("peerX", now) {
		t.Fatalf("expected ban to have expired by now=%d", now)
	}
	state := s.Get("peerX", now)
	if state.Penalty != 0 || state.Banned {
		t.Fatalf("expected Penalty(0) after ban expiry, got %+v", state)
	}
}

func TestPenaltyForgivenessDecaysOverTime(t *testing.T) {
	s := New(Config{BanThreshold: 1000, BanDuration: 1000, PenaltyForgiveness: 5, PenaltyFrequency: 100})

	s.Update("peerY", 20, 0)
	state := s.Get("peerY", 250)
	if state.Penalty != 20-2*5 {
		t.Fatalf("Penalty = %d, want %d after two forgiveness units", state.Penalty, 20-2*5)
	}
}
