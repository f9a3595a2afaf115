package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

func TestLineupService_SignAndUnsign(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	keeper := roster.Identified("u-1", "Keeper")

	view, err := f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "gk", Player: keeper})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed, ok := view.State.Teams[0].Player(formation.PositionGK); !ok || !signed.Player.Equal(keeper) {
		t.Fatalf("expected keeper at GK, got %+v", view.State.Teams[0].Slots)
	}
	if view.Ready {
		t.Fatalf("one player must not be ready")
	}
	if view.State.Display["lineup"] == "" {
		t.Fatalf("expected display refs from refresh, got %v", view.State.Display)
	}

	outcome, err := f.lineup.Unsign(ctx, blueLockEights, keeper)
	if err != nil {
		t.Fatalf("unsign: %v", err)
	}
	if outcome.Vacated.Position != formation.PositionGK || outcome.Promoted != nil {
		t.Fatalf("unexpected unsign outcome: %+v", outcome)
	}
	if f.state(t, blueLockEights).SignedCount() != 0 {
		t.Fatalf("expected empty lineup after unsign")
	}
	if f.notifier.refreshCount(blueLockEights) != 2 {
		t.Fatalf("expected one refresh per mutation, got %d", f.notifier.refreshCount(blueLockEights))
	}
}

func TestLineupService_Sign_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	if _, err := f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "CB", Player: roster.Identified("u-1", "One")}); err != nil {
		t.Fatalf("seed sign: %v", err)
	}

	tests := []struct {
		name  string
		input SignInput
		kind  error
		class error
	}{
		{
			name:  "position taken",
			input: SignInput{Venue: blueLockEights, Position: "CB", Player: roster.Identified("u-2", "Two")},
			kind:  ErrPositionTaken,
			class: ErrConflict,
		},
		{
			name:  "position outside format",
			input: SignInput{Venue: venue.NewKey(blueLockID, "200000000000000011"), Position: "CB", Player: roster.Identified("u-2", "Two")},
			kind:  ErrInvalidPosition,
			class: ErrValidation,
		},
		{
			name:  "signed in another venue",
			input: SignInput{Venue: northStarEights, Position: "GK", Player: roster.Identified("u-1", "One")},
			kind:  ErrPlayerAlreadySigned,
			class: ErrConflict,
		},
		{
			name:  "unknown channel",
			input: SignInput{Venue: venue.NewKey(blueLockID, "999"), Position: "GK", Player: roster.Identified("u-2", "Two")},
			kind:  ErrNotAMatchmakingVenue,
			class: ErrValidation,
		},
		{
			name:  "second team in a team venue",
			input: SignInput{Venue: blueLockEights, TeamIndex: 1, Position: "GK", Player: roster.Identified("u-2", "Two")},
			kind:  ErrInvalidInput,
			class: ErrValidation,
		},
		{
			name:  "missing player",
			input: SignInput{Venue: blueLockEights, Position: "GK"},
			kind:  ErrInvalidInput,
			class: ErrValidation,
		},
	}

	for _, tc := range tests {
		_, err := f.lineup.Sign(ctx, tc.input)
		if !errors.Is(err, tc.kind) || !errors.Is(err, tc.class) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.kind, err)
		}
	}

	if _, exists, _ := f.rosters.Get(ctx, northStarEights); exists {
		t.Fatalf("rejected sign must not create a roster")
	}
}

func TestLineupService_Sign_AlreadySignedMessageNamesVenue(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	player := roster.Identified("u-1", "Striker")
	if _, err := f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "CF", Player: player}); err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err := f.lineup.Sign(ctx, SignInput{Venue: redWolvesEights, Position: "CF", Player: player})
	if err == nil || !strings.Contains(err.Error(), "Blue Lock") {
		t.Fatalf("expected message naming Blue Lock, got %v", err)
	}
}

func TestLineupService_Unsign_NotSignedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	_, err := f.lineup.Unsign(t.Context(), blueLockEights, roster.Freeform("Nobody"))
	if !errors.Is(err, ErrNotSigned) {
		t.Fatalf("expected ErrNotSigned, got %v", err)
	}
	if _, exists, _ := f.rosters.Get(t.Context(), blueLockEights); exists {
		t.Fatalf("failed unsign must not store a roster")
	}
	if f.notifier.refreshCount(blueLockEights) != 0 {
		t.Fatalf("failed unsign must not refresh the display")
	}
}

func TestLineupService_Unsign_PromotesOldestSubstitute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	starter := roster.Identified("u-1", "Starter")
	first := roster.Identified("u-2", "First Sub")
	second := roster.Freeform("Second Sub")

	if _, err := f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "LW", Player: starter}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	for _, sub := range []roster.PlayerRef{first, second} {
		outcome, err := f.lineup.ToggleSubstitute(ctx, blueLockEights, sub)
		if err != nil || !outcome.Added {
			t.Fatalf("bench %s: added=%v err=%v", sub, outcome.Added, err)
		}
	}

	outcome, err := f.lineup.Unsign(ctx, blueLockEights, starter)
	if err != nil {
		t.Fatalf("unsign: %v", err)
	}
	if outcome.Promoted == nil || !outcome.Promoted.Equal(first) {
		t.Fatalf("expected first sub promoted, got %+v", outcome.Promoted)
	}
	state := f.state(t, blueLockEights)
	if signed, _ := state.Teams[0].Player(formation.PositionLW); !signed.Player.Equal(first) {
		t.Fatalf("expected promoted sub at LW, got %+v", signed)
	}
	if len(state.Substitutes) != 1 || !state.Substitutes[0].Equal(second) {
		t.Fatalf("unexpected bench: %+v", state.Substitutes)
	}
	if f.notifier.dmCount() != 1 {
		t.Fatalf("expected the promoted sub to be messaged once, got %d", f.notifier.dmCount())
	}
}

func TestLineupService_ToggleSubstitute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	player := roster.Identified("u-1", "Bench")

	if _, err := f.lineup.ToggleSubstitute(ctx, blueLockEights, player); err != nil {
		t.Fatalf("bench: %v", err)
	}
	if _, err := f.lineup.ToggleSubstitute(ctx, northStarEights, player); !errors.Is(err, ErrPlayerAlreadySigned) {
		t.Fatalf("bench in a second venue: expected ErrPlayerAlreadySigned, got %v", err)
	}
	outcome, err := f.lineup.ToggleSubstitute(ctx, blueLockEights, player)
	if err != nil {
		t.Fatalf("unbench: %v", err)
	}
	if outcome.Added || len(outcome.View.State.Substitutes) != 0 {
		t.Fatalf("expected player off the bench, got %+v", outcome.View.State.Substitutes)
	}
}

func TestLineupService_ReadyMarks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()
	player := roster.Identified("u-1", "Ready")

	if _, err := f.lineup.Ready(ctx, blueLockEights, player); !errors.Is(err, ErrNotSigned) {
		t.Fatalf("ready unsigned: expected ErrNotSigned, got %v", err)
	}
	if _, err := f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "CM", Player: player}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.lineup.Ready(ctx, blueLockEights, player); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := f.lineup.Ready(ctx, blueLockEights, player); !errors.Is(err, ErrAlreadyReady) {
		t.Fatalf("ready twice: expected ErrAlreadyReady, got %v", err)
	}
	view, err := f.lineup.Unready(ctx, blueLockEights, player)
	if err != nil {
		t.Fatalf("unready: %v", err)
	}
	if view.State.IsReady(player) {
		t.Fatalf("player still marked ready")
	}
	if _, err := f.lineup.Unready(ctx, blueLockEights, player); !errors.Is(err, ErrNotMarkedReady) {
		t.Fatalf("unready twice: expected ErrNotMarkedReady, got %v", err)
	}
}

func TestLineupService_View_Readiness(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()

	view, err := f.lineup.View(ctx, blueLockEights)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Ready || !strings.Contains(view.Verdict, "Blue Lock is not full") {
		t.Fatalf("unexpected verdict for empty lineup: %q", view.Verdict)
	}

	f.fillLineup(t, blueLockEights, 0, "blue")
	view, err = f.lineup.View(ctx, blueLockEights)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Ready {
		t.Fatalf("full lineup with GK must be ready, verdict=%q", view.Verdict)
	}
}

func TestLineupService_SharedVenue_TwoLineupsShareOneGoalkeeper(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()

	for _, pos := range formation.FormatEights.Positions() {
		if _, err := f.lineup.Sign(ctx, SignInput{Venue: sharedVenueKey, TeamIndex: 0, Position: string(pos), Player: roster.Freeform("home " + string(pos))}); err != nil {
			t.Fatalf("sign team 1 %s: %v", pos, err)
		}
	}
	for _, pos := range formation.FormatEights.FieldPositions() {
		if _, err := f.lineup.Sign(ctx, SignInput{Venue: sharedVenueKey, TeamIndex: 1, Position: string(pos), Player: roster.Freeform("away " + string(pos))}); err != nil {
			t.Fatalf("sign team 2 %s: %v", pos, err)
		}
	}

	view, err := f.lineup.View(ctx, sharedVenueKey)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Ready {
		t.Fatalf("one goalkeeper across both lineups must be enough, verdict=%q", view.Verdict)
	}
	if _, err := f.lineup.Sign(ctx, SignInput{Venue: sharedVenueKey, TeamIndex: 2, Position: "GK", Player: roster.Freeform("third")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("third lineup: expected ErrInvalidInput, got %v", err)
	}
}

func TestLineupService_Sign_ParallelSameSlot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	ctx := t.Context()

	const callers = 50
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			player := roster.Identified(fmt.Sprintf("u-%d", i), fmt.Sprintf("Player %d", i))
			_, errs[i] = f.lineup.Sign(ctx, SignInput{Venue: blueLockEights, Position: "CB", Player: player})
		}()
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case !errors.Is(err, ErrPositionTaken):
			t.Fatalf("caller %d: expected ErrPositionTaken, got %v", i, err)
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one signature on CB, got %d", won)
	}
	if got := f.state(t, blueLockEights).SignedCount(); got != 1 {
		t.Fatalf("expected one signed player, got %d", got)
	}
}

func TestLineupService_ParallelCrossVenueSlots(t *testing.T) {
	t.Parallel()

	for round := range 20 {
		f := newFixture(t, testTeams())
		ctx := t.Context()
		player := roster.Identified(fmt.Sprintf("u-%d", round), "Roamer")

		var wg sync.WaitGroup
		errs := make([]error, 4)
		run := func(idx int, fn func() error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[idx] = fn()
			}()
		}
		run(0, func() error {
			_, err := f.lineup.ToggleSubstitute(ctx, blueLockEights, player)
			return err
		})
		run(1, func() error {
			_, err := f.lineup.ToggleSubstitute(ctx, northStarEights, player)
			return err
		})
		run(2, func() error {
			_, err := f.lineup.Sign(ctx, SignInput{Venue: redWolvesEights, Position: "GK", Player: player})
			return err
		})
		run(3, func() error {
			_, err := f.lineup.Sign(ctx, SignInput{Venue: ironOwlsEights, Position: "GK", Player: player})
			return err
		})
		wg.Wait()

		won := 0
		for i, err := range errs {
			switch {
			case err == nil:
				won++
			case !errors.Is(err, ErrPlayerAlreadySigned):
				t.Fatalf("round %d caller %d: expected ErrPlayerAlreadySigned, got %v", round, i, err)
			}
		}
		if won != 1 {
			t.Fatalf("round %d: player must hold exactly one slot, got %d", round, won)
		}

		held := 0
		states, err := f.rosters.List(ctx)
		if err != nil {
			t.Fatalf("list rosters: %v", err)
		}
		for _, state := range states {
			if _, ok := state.Locate(player); ok {
				held++
			}
		}
		if held != 1 {
			t.Fatalf("round %d: player found in %d rosters", round, held)
		}
	}
}
