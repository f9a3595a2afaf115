package challenge

import (
	"errors"
	"testing"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{from: StatusPendingBroadcast, event: EventAccept, want: StatusAccepted},
		{from: StatusPendingBroadcast, event: EventCancelByInitiator, want: StatusCancelledByInitiator},
		{from: StatusPendingBroadcast, event: EventDecline, wantErr: true},
		{from: StatusPendingDirect, event: EventAccept, want: StatusAccepted},
		{from: StatusPendingDirect, event: EventDecline, want: StatusDeclined},
		{from: StatusPendingDirect, event: EventCancelByInitiator, want: StatusCancelledByInitiator},
		{from: StatusPendingDirect, event: EventLeaveByOpponent, wantErr: true},
		{from: StatusAccepted, event: EventLeaveByOpponent, want: StatusCancelledByOpponent},
		{from: StatusAccepted, event: EventCancelByInitiator, want: StatusCancelledByInitiator},
		{from: StatusAccepted, event: EventAccept, wantErr: true},
		{from: StatusDeclined, event: EventAccept, wantErr: true},
		{from: StatusCancelledByOpponent, event: EventCancelByInitiator, wantErr: true},
	}

	for _, tc := range tests {
		got, err := Transition(tc.from, tc.event)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s on %s: expected ErrInvalidTransition, got %v", tc.event, tc.from, err)
			}
			if got != tc.from {
				t.Fatalf("%s on %s: rejected transition must keep status, got %s", tc.event, tc.from, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s on %s: unexpected error %v", tc.event, tc.from, err)
		}
		if got != tc.want {
			t.Fatalf("%s on %s: got %s want %s", tc.event, tc.from, got, tc.want)
		}
	}
}

func TestChallenge_CloneIsolatesRefs(t *testing.T) {
	t.Parallel()

	key := venue.NewKey("g", "c")
	original := Challenge{ID: "c1", BroadcastRefs: map[venue.Key]Offer{key: {MessageID: "m1"}}}
	copied := original.Clone()
	delete(copied.BroadcastRefs, key)

	if _, ok := original.BroadcastRefs[key]; !ok {
		t.Fatalf("clone shares the refs map with the original")
	}
}

func TestChallenge_Counterpart(t *testing.T) {
	t.Parallel()

	home := venue.NewKey("g1", "c1")
	away := venue.NewKey("g2", "c2")
	item := Challenge{InitiatorVenue: home, OpponentVenue: away}

	if got, ok := item.Counterpart(home); !ok || got != away {
		t.Fatalf("unexpected counterpart for initiator: %v %v", got, ok)
	}
	if got, ok := item.Counterpart(away); !ok || got != home {
		t.Fatalf("unexpected counterpart for opponent: %v %v", got, ok)
	}
	if _, ok := item.Counterpart(venue.NewKey("x", "y")); ok {
		t.Fatalf("unrelated venue must have no counterpart")
	}
}
