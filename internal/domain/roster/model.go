package roster

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

var (
	ErrInvalidTeam         = errors.New("invalid team index")
	ErrInvalidPosition     = errors.New("invalid position")
	ErrPositionTaken       = errors.New("position taken")
	ErrPlayerAlreadySigned = errors.New("player already signed")
	ErrNotSigned           = errors.New("player not signed")
	ErrAlreadyReady        = errors.New("player already ready")
	ErrNotReady            = errors.New("player not ready")
)

// TeamLineup maps each filled position to its player; an absent key is an open slot.
type TeamLineup struct {
	Name  string
	Slots map[formation.Position]SignedPlayer
}

func (l TeamLineup) Player(pos formation.Position) (SignedPlayer, bool) {
	item, ok := l.Slots[pos]
	return item, ok
}

func (l TeamLineup) Filled(pos formation.Position) bool {
	_, ok := l.Slots[pos]
	return ok
}

func (l TeamLineup) PositionOf(player PlayerRef) (formation.Position, bool) {
	for pos, signed := range l.Slots {
		if signed.Player.Equal(player) {
			return pos, true
		}
	}
	return "", false
}

func (l TeamLineup) SignedCount() int {
	return len(l.Slots)
}

func (l TeamLineup) Clone() TeamLineup {
	slots := make(map[formation.Position]SignedPlayer, len(l.Slots))
	for pos, signed := range l.Slots {
		slots[pos] = signed
	}
	return TeamLineup{Name: l.Name, Slots: slots}
}

// WithName returns a copy labelled for readiness messages.
func (l TeamLineup) WithName(name string) TeamLineup {
	out := l.Clone()
	out.Name = name
	return out
}

// ChallengeFlags mark a shared venue that is standing in as a challenge opponent.
type ChallengeFlags struct {
	ChallengerName string
	Format         formation.Format
}

// DisplayRefs are opaque message handles owned by the chat adapter.
type DisplayRefs map[string]string

// Slot locates a player inside a State.
type Slot struct {
	TeamIndex  int
	Position   formation.Position
	Substitute bool
}

// State is the per-venue roster record.
type State struct {
	Venue          venue.Venue
	Teams          []TeamLineup
	Substitutes    []PlayerRef
	Ready          []PlayerRef
	Display        DisplayRefs
	ChallengeFlags *ChallengeFlags
	// LinkedVenue is the counterpart venue of the accepted challenge this venue is party to.
	LinkedVenue venue.Key
	UpdatedAt   time.Time
}

func NewState(v venue.Venue, now time.Time) State {
	state := State{Venue: v, UpdatedAt: now}
	state.Teams = freshTeams(v)
	return state
}

func freshTeams(v venue.Venue) []TeamLineup {
	count := v.TeamCount()
	teams := make([]TeamLineup, count)
	for i := range teams {
		name := v.Name
		if count > 1 || name == "" {
			name = "Team " + strconv.Itoa(i+1)
		}
		teams[i] = TeamLineup{Name: name, Slots: map[formation.Position]SignedPlayer{}}
	}
	return teams
}

func (s State) Format() formation.Format {
	return s.Venue.Format
}

func (s State) Linked() bool {
	return !s.LinkedVenue.IsZero()
}

func (s State) Clone() State {
	out := s
	out.Teams = make([]TeamLineup, len(s.Teams))
	for i, team := range s.Teams {
		out.Teams[i] = team.Clone()
	}
	out.Substitutes = append([]PlayerRef(nil), s.Substitutes...)
	out.Ready = append([]PlayerRef(nil), s.Ready...)
	if s.Display != nil {
		out.Display = make(DisplayRefs, len(s.Display))
		for k, v := range s.Display {
			out.Display[k] = v
		}
	}
	if s.ChallengeFlags != nil {
		flags := *s.ChallengeFlags
		out.ChallengeFlags = &flags
	}
	return out
}

// Locate reports where the player sits in this venue, positions before substitutes.
func (s State) Locate(player PlayerRef) (Slot, bool) {
	for idx, team := range s.Teams {
		if pos, ok := team.PositionOf(player); ok {
			return Slot{TeamIndex: idx, Position: pos}, true
		}
	}
	if indexOfPlayer(s.Substitutes, player) >= 0 {
		return Slot{Substitute: true}, true
	}
	return Slot{}, false
}

func (s State) IsSubstitute(player PlayerRef) bool {
	return indexOfPlayer(s.Substitutes, player) >= 0
}

func (s State) IsReady(player PlayerRef) bool {
	return indexOfPlayer(s.Ready, player) >= 0
}

func (s State) SignedCount() int {
	total := 0
	for _, team := range s.Teams {
		total += team.SignedCount()
	}
	return total
}

// Sign places the player into teamIdx/pos, pulling them off the substitute list first.
func (s *State) Sign(teamIdx int, pos formation.Position, player PlayerRef, now time.Time) error {
	if teamIdx < 0 || teamIdx >= len(s.Teams) {
		return fmt.Errorf("%w: %d (venue hosts %d)", ErrInvalidTeam, teamIdx+1, len(s.Teams))
	}
	if !s.Venue.Format.Has(pos) {
		return fmt.Errorf("%w: %s is not a %s position", ErrInvalidPosition, pos, s.Venue.Format)
	}
	if holder, ok := s.Teams[teamIdx].Player(pos); ok {
		return fmt.Errorf("%w: %s is held by %s", ErrPositionTaken, pos, holder.Player)
	}
	for idx, team := range s.Teams {
		if held, ok := team.PositionOf(player); ok {
			return fmt.Errorf("%w: %s already plays %s for %s", ErrPlayerAlreadySigned, player, held, s.Teams[idx].Name)
		}
	}

	s.Substitutes, _ = removePlayer(s.Substitutes, player)
	if s.Teams[teamIdx].Slots == nil {
		s.Teams[teamIdx].Slots = map[formation.Position]SignedPlayer{}
	}
	s.Teams[teamIdx].Slots[pos] = SignedPlayer{Player: player, SignedAt: now}
	s.UpdatedAt = now
	return nil
}

// UnsignResult describes what an unsign changed.
type UnsignResult struct {
	Vacated  Slot
	Promoted *PlayerRef
}

// Unsign frees the player's slot. A vacated position is refilled by the oldest substitute.
func (s *State) Unsign(player PlayerRef, now time.Time) (UnsignResult, error) {
	slot, ok := s.Locate(player)
	if !ok {
		return UnsignResult{}, fmt.Errorf("%w: %s", ErrNotSigned, player)
	}

	s.Ready, _ = removePlayer(s.Ready, player)
	s.UpdatedAt = now

	if slot.Substitute {
		s.Substitutes, _ = removePlayer(s.Substitutes, player)
		return UnsignResult{Vacated: slot}, nil
	}

	delete(s.Teams[slot.TeamIndex].Slots, slot.Position)
	result := UnsignResult{Vacated: slot}
	if len(s.Substitutes) == 0 {
		return result, nil
	}

	next := s.Substitutes[0]
	s.Substitutes = append([]PlayerRef(nil), s.Substitutes[1:]...)
	s.Teams[slot.TeamIndex].Slots[slot.Position] = SignedPlayer{Player: next, SignedAt: now}
	result.Promoted = &next
	return result, nil
}

// ToggleSubstitute adds the player to the bench, or removes them when already there.
func (s *State) ToggleSubstitute(player PlayerRef, now time.Time) (bool, error) {
	if slot, ok := s.Locate(player); ok && !slot.Substitute {
		return false, fmt.Errorf("%w: %s holds %s", ErrPlayerAlreadySigned, player, slot.Position)
	}

	s.UpdatedAt = now
	if remaining, removed := removePlayer(s.Substitutes, player); removed {
		s.Substitutes = remaining
		s.Ready, _ = removePlayer(s.Ready, player)
		return false, nil
	}
	s.Substitutes = append(s.Substitutes, player)
	return true, nil
}

func (s *State) MarkReady(player PlayerRef, now time.Time) error {
	if _, ok := s.Locate(player); !ok {
		return fmt.Errorf("%w: sign a position before readying", ErrNotSigned)
	}
	if s.IsReady(player) {
		return fmt.Errorf("%w: %s", ErrAlreadyReady, player)
	}
	s.Ready = append(s.Ready, player)
	s.UpdatedAt = now
	return nil
}

func (s *State) ClearReady(player PlayerRef, now time.Time) error {
	remaining, removed := removePlayer(s.Ready, player)
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotReady, player)
	}
	s.Ready = remaining
	s.UpdatedAt = now
	return nil
}

// InjectChallengeFlags turns a shared venue into a single-lineup challenge opponent.
func (s *State) InjectChallengeFlags(flags ChallengeFlags, now time.Time) {
	for idx := 1; idx < len(s.Teams); idx++ {
		s.Teams[idx].Slots = map[formation.Position]SignedPlayer{}
	}
	s.Substitutes = nil
	s.Ready = nil
	s.ChallengeFlags = &flags
	s.UpdatedAt = now
}

func (s *State) ClearChallengeFlags(now time.Time) {
	s.ChallengeFlags = nil
	s.UpdatedAt = now
}

// Reset empties every lineup and drops adapter handles; the venue identity is kept.
func (s *State) Reset(now time.Time) {
	s.Teams = freshTeams(s.Venue)
	s.Substitutes = nil
	s.Ready = nil
	s.Display = nil
	s.ChallengeFlags = nil
	s.LinkedVenue = venue.Key{}
	s.UpdatedAt = now
}

// Participants lists everyone signed or on the bench, de-duplicated by identity.
func (s State) Participants() []PlayerRef {
	seen := make(map[string]struct{})
	out := make([]PlayerRef, 0, s.SignedCount()+len(s.Substitutes))
	add := func(player PlayerRef) {
		key := player.IdentityKey()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, player)
	}
	for _, team := range s.Teams {
		for _, pos := range s.Venue.Format.Positions() {
			if signed, ok := team.Player(pos); ok {
				add(signed.Player)
			}
		}
	}
	for _, sub := range s.Substitutes {
		add(sub)
	}
	return out
}
