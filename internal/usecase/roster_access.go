package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
)

// Lock scopes. Every operation acquires all of its scopes in a single Lock call.
func venueLockKey(key venue.Key) string {
	return "venue:" + key.String()
}

func playerLockKey(player roster.PlayerRef) string {
	return "player:" + player.IdentityKey()
}

func challengeLockKey(id string) string {
	return "challenge:" + id
}

func outgoingLockKey(teamID string, format formation.Format) string {
	return "outgoing:" + teamID + ":" + string(format)
}

// rosterAccess bundles the roster store with display refresh. Callers hold the venue lock.
type rosterAccess struct {
	repo     roster.Repository
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
}

// load returns the stored state, or a fresh one when the venue has none or was reconfigured.
func (a rosterAccess) load(ctx context.Context, v venue.Venue) (roster.State, error) {
	state, exists, err := a.repo.Get(ctx, v.Key)
	if err != nil {
		return roster.State{}, fmt.Errorf("get roster %s: %w", v.Key, err)
	}
	if !exists || state.Venue.Format != v.Format || state.Venue.Role != v.Role {
		return roster.NewState(v, a.now()), nil
	}
	state.Venue.Name = v.Name
	state.Venue.OwningTeamID = v.OwningTeamID
	return state, nil
}

// peek reads a state without creating it.
func (a rosterAccess) peek(ctx context.Context, key venue.Key) (roster.State, bool, error) {
	state, exists, err := a.repo.Get(ctx, key)
	if err != nil {
		return roster.State{}, false, fmt.Errorf("get roster %s: %w", key, err)
	}
	return state, exists, nil
}

func (a rosterAccess) save(ctx context.Context, state roster.State) error {
	if err := a.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("save roster %s: %w", state.Venue.Key, err)
	}
	return nil
}

// refresh redraws the venue display and keeps the returned handles on the state.
func (a rosterAccess) refresh(ctx context.Context, state *roster.State) {
	if a.notifier == nil {
		return
	}
	refs, err := a.notifier.RefreshLineup(ctx, *state)
	if err != nil {
		a.logger.WarnContext(ctx, "refresh lineup display failed", "venue", state.Venue.Key.String(), "error", err)
		return
	}
	if refs != nil {
		state.Display = refs
	}
}

// findSignedElsewhere looks for the player in every other venue's roster.
func (a rosterAccess) findSignedElsewhere(ctx context.Context, key venue.Key, player roster.PlayerRef) (roster.State, roster.Slot, bool, error) {
	states, err := a.repo.List(ctx)
	if err != nil {
		return roster.State{}, roster.Slot{}, false, fmt.Errorf("list rosters: %w", err)
	}
	for _, state := range states {
		if state.Venue.Key == key {
			continue
		}
		if slot, ok := state.Locate(player); ok {
			return state, slot, true, nil
		}
	}
	return roster.State{}, roster.Slot{}, false, nil
}

// findAccepted returns the accepted challenge the venue is party to, if any.
func findAccepted(ctx context.Context, registry challenge.Registry, key venue.Key) (challenge.Challenge, bool, error) {
	items, err := registry.List(ctx)
	if err != nil {
		return challenge.Challenge{}, false, fmt.Errorf("list challenges: %w", err)
	}
	for _, item := range items {
		if item.Status == challenge.StatusAccepted && item.Involves(key) {
			return item, true, nil
		}
	}
	return challenge.Challenge{}, false, nil
}

func sortChallenges(items []challenge.Challenge) {
	slices.SortFunc(items, func(a, b challenge.Challenge) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// matchup is the set of lineups judged together for readiness and handed off together.
type matchup struct {
	format    formation.Format
	home      roster.State
	away      *roster.State
	challenge *challenge.Challenge
	teams     []roster.TeamLineup
}

func (m matchup) names() (string, string) {
	if len(m.teams) == 0 {
		return "", ""
	}
	if len(m.teams) == 1 {
		return m.teams[0].Name, ""
	}
	return m.teams[0].Name, m.teams[1].Name
}

func (m matchup) check() (bool, string) {
	return roster.CheckReady(m.format, m.teams...)
}

// participants de-duplicates every signed and benched player across both sides.
func (m matchup) participants() []roster.PlayerRef {
	seen := make(map[string]struct{})
	var out []roster.PlayerRef
	states := []roster.State{m.home}
	if m.away != nil {
		states = append(states, *m.away)
	}
	for _, state := range states {
		for _, player := range state.Participants() {
			key := player.IdentityKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, player)
		}
	}
	return out
}

// buildMatchup pairs initiator and opponent lineups for an accepted challenge,
// or evaluates the venue's own lineups otherwise.
func buildMatchup(state roster.State, item *challenge.Challenge, initiator, opponent roster.State) matchup {
	if item == nil {
		teams := make([]roster.TeamLineup, len(state.Teams))
		copy(teams, state.Teams)
		return matchup{format: state.Format(), home: state, teams: teams}
	}

	away := opponent
	return matchup{
		format:    item.Format,
		home:      initiator,
		away:      &away,
		challenge: item,
		teams: []roster.TeamLineup{
			firstLineup(initiator).WithName(item.InitiatorTeamName),
			firstLineup(opponent).WithName(item.OpponentTeamName),
		},
	}
}

func firstLineup(state roster.State) roster.TeamLineup {
	if len(state.Teams) == 0 {
		return roster.TeamLineup{}
	}
	return state.Teams[0]
}
