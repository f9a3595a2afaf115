package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

var ErrInvalidTransition = errors.New("invalid challenge transition")

type Status string

const (
	StatusPendingBroadcast     Status = "pending_broadcast"
	StatusPendingDirect        Status = "pending_direct"
	StatusAccepted             Status = "accepted"
	StatusDeclined             Status = "declined"
	StatusCancelledByInitiator Status = "cancelled_by_initiator"
	StatusCancelledByOpponent  Status = "cancelled_by_opponent"
)

// Terminal statuses are never stored; reaching one removes the challenge.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelledByInitiator, StatusCancelledByOpponent:
		return true
	default:
		return false
	}
}

func (s Status) Pending() bool {
	return s == StatusPendingBroadcast || s == StatusPendingDirect
}

type TargetKind string

const (
	TargetBroadcast   TargetKind = "broadcast"
	TargetDirectTeam  TargetKind = "direct_team"
	TargetSharedVenue TargetKind = "shared_venue"
)

func ParseTargetKind(raw string) (TargetKind, error) {
	switch kind := TargetKind(raw); kind {
	case TargetBroadcast, TargetDirectTeam, TargetSharedVenue:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown challenge target %q", raw)
	}
}

type Event string

const (
	EventAccept            Event = "accept"
	EventDecline           Event = "decline"
	EventCancelByInitiator Event = "cancel_by_initiator"
	EventLeaveByOpponent   Event = "leave_by_opponent"
)

// Transition is the lifecycle table. Every (status, event) pair not listed is rejected.
func Transition(from Status, event Event) (Status, error) {
	switch from {
	case StatusPendingBroadcast:
		switch event {
		case EventAccept:
			return StatusAccepted, nil
		case EventCancelByInitiator:
			return StatusCancelledByInitiator, nil
		}
	case StatusPendingDirect:
		switch event {
		case EventAccept:
			return StatusAccepted, nil
		case EventDecline:
			return StatusDeclined, nil
		case EventCancelByInitiator:
			return StatusCancelledByInitiator, nil
		}
	case StatusAccepted:
		switch event {
		case EventLeaveByOpponent:
			return StatusCancelledByOpponent, nil
		case EventCancelByInitiator:
			return StatusCancelledByInitiator, nil
		}
	case StatusDeclined, StatusCancelledByInitiator, StatusCancelledByOpponent:
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
}

// Offer is a challenge artifact posted into one recipient venue.
type Offer struct {
	TeamID    string
	TeamName  string
	MessageID string
	PostedAt  time.Time
}

type Challenge struct {
	ID                string
	InitiatorVenue    venue.Key
	InitiatorTeamID   string
	InitiatorTeamName string
	Format            formation.Format
	TargetKind        TargetKind
	TargetID          string
	TargetName        string
	Status            Status
	CreatedAt         time.Time
	AcceptedAt        *time.Time
	OpponentVenue     venue.Key
	OpponentTeamID    string
	OpponentTeamName  string
	// BroadcastRefs holds every outstanding offer artifact keyed by recipient venue.
	BroadcastRefs map[venue.Key]Offer
}

func (c Challenge) Clone() Challenge {
	out := c
	if c.AcceptedAt != nil {
		acceptedAt := *c.AcceptedAt
		out.AcceptedAt = &acceptedAt
	}
	if c.BroadcastRefs != nil {
		out.BroadcastRefs = make(map[venue.Key]Offer, len(c.BroadcastRefs))
		for k, v := range c.BroadcastRefs {
			out.BroadcastRefs[k] = v
		}
	}
	return out
}

// Apply runs the event through Transition and updates the status in place.
func (c *Challenge) Apply(event Event) error {
	next, err := Transition(c.Status, event)
	if err != nil {
		return err
	}
	c.Status = next
	return nil
}

// Involves reports whether the venue is the initiator or the accepted opponent.
func (c Challenge) Involves(key venue.Key) bool {
	return c.InitiatorVenue == key || (!c.OpponentVenue.IsZero() && c.OpponentVenue == key)
}

func (c Challenge) InvolvesTeam(teamID string) bool {
	if teamID == "" {
		return false
	}
	return c.InitiatorTeamID == teamID || c.OpponentTeamID == teamID
}

// Counterpart returns the other side of an accepted challenge.
func (c Challenge) Counterpart(key venue.Key) (venue.Key, bool) {
	switch key {
	case c.InitiatorVenue:
		return c.OpponentVenue, !c.OpponentVenue.IsZero()
	case c.OpponentVenue:
		return c.InitiatorVenue, true
	default:
		return venue.Key{}, false
	}
}
