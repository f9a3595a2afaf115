package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// LineupView is what adapters render after any lineup operation.
type LineupView struct {
	Venue venue.Venue
	State roster.State
	// Counterpart is the other side of the accepted challenge this venue is party to.
	Counterpart *roster.State
	Challenge   *challenge.Challenge
	Ready       bool
	Verdict     string
}

type SignInput struct {
	Venue venue.Key
	// TeamIndex is zero-based; only shared venues accept 1.
	TeamIndex int
	Position  string
	Player    roster.PlayerRef
}

type UnsignOutcome struct {
	View     LineupView
	Vacated  roster.Slot
	Promoted *roster.PlayerRef
}

type SubstituteOutcome struct {
	View  LineupView
	Added bool
}

type LineupService struct {
	classifier *VenueClassifier
	rosters    rosterAccess
	challenges challenge.Registry
	locks      *keyedlock.Locker
	notifier   Notifier
	logger     *logging.Logger
	now        func() time.Time
}

func NewLineupService(
	classifier *VenueClassifier,
	rosterRepo roster.Repository,
	challengeRegistry challenge.Registry,
	locks *keyedlock.Locker,
	notifier Notifier,
	logger *logging.Logger,
) *LineupService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &LineupService{
		classifier: classifier,
		challenges: challengeRegistry,
		locks:      locks,
		notifier:   notifier,
		logger:     logger.Named("lineup"),
		now:        time.Now,
	}
	s.rosters = rosterAccess{repo: rosterRepo, notifier: notifier, logger: s.logger, now: s.clock}
	return s
}

func (s *LineupService) clock() time.Time {
	return s.now()
}

// View returns the venue's lineup and its readiness verdict without mutating anything.
func (s *LineupService) View(ctx context.Context, key venue.Key) (LineupView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.View", attribute.String("venue", key.String()))
	defer span.End()

	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return LineupView{}, err
	}
	state, err := s.rosters.load(ctx, v)
	if err != nil {
		return LineupView{}, err
	}
	return s.view(ctx, state)
}

func (s *LineupService) Sign(ctx context.Context, input SignInput) (view LineupView, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Sign", attribute.String("venue", input.Venue.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return LineupView{}, err
	}
	if input.Player.IsZero() {
		return LineupView{}, fmt.Errorf("%w: player is required", ErrInvalidInput)
	}
	pos, err := formation.ParsePosition(v.Format, input.Position)
	if err != nil {
		return LineupView{}, mapDomainError(err)
	}

	unlock, err := s.locks.Lock(ctx, venueLockKey(v.Key), playerLockKey(input.Player))
	if err != nil {
		return LineupView{}, err
	}
	defer unlock()

	state, err := s.rosters.load(ctx, v)
	if err != nil {
		return LineupView{}, err
	}
	if state.ChallengeFlags != nil && input.TeamIndex != 0 {
		return LineupView{}, fmt.Errorf("%w: this channel plays as one team against %s", ErrInvalidInput, state.ChallengeFlags.ChallengerName)
	}
	if err := s.ensureNotSignedElsewhere(ctx, v.Key, input.Player); err != nil {
		return LineupView{}, err
	}

	if err := state.Sign(input.TeamIndex, pos, input.Player, s.now()); err != nil {
		return LineupView{}, mapDomainError(err)
	}
	s.rosters.refresh(ctx, &state)
	if err := s.rosters.save(ctx, state); err != nil {
		return LineupView{}, err
	}

	s.logger.DebugContext(ctx, "player signed", "venue", v.Key.String(), "position", string(pos), "player", input.Player.String())
	return s.view(ctx, state)
}

func (s *LineupService) Unsign(ctx context.Context, key venue.Key, player roster.PlayerRef) (outcome UnsignOutcome, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Unsign", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return UnsignOutcome{}, err
	}

	unlock, err := s.locks.Lock(ctx, venueLockKey(v.Key))
	if err != nil {
		return UnsignOutcome{}, err
	}
	defer unlock()

	state, err := s.rosters.load(ctx, v)
	if err != nil {
		return UnsignOutcome{}, err
	}
	result, err := state.Unsign(player, s.now())
	if err != nil {
		return UnsignOutcome{}, mapDomainError(err)
	}
	s.rosters.refresh(ctx, &state)
	if err := s.rosters.save(ctx, state); err != nil {
		return UnsignOutcome{}, err
	}

	if result.Promoted != nil {
		msg := fmt.Sprintf("You moved off the bench into %s in %s.", result.Vacated.Position, v.Name)
		if notifyErr := s.notifier.NotifyPlayer(ctx, *result.Promoted, msg); notifyErr != nil {
			s.logger.WarnContext(ctx, "notify promoted substitute failed", "venue", v.Key.String(), "error", notifyErr)
		}
	}

	view, err := s.view(ctx, state)
	if err != nil {
		return UnsignOutcome{}, err
	}
	return UnsignOutcome{View: view, Vacated: result.Vacated, Promoted: result.Promoted}, nil
}

// ToggleSubstitute benches the player, or takes them off the bench when already there.
func (s *LineupService) ToggleSubstitute(ctx context.Context, key venue.Key, player roster.PlayerRef) (outcome SubstituteOutcome, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.ToggleSubstitute", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return SubstituteOutcome{}, err
	}
	if player.IsZero() {
		return SubstituteOutcome{}, fmt.Errorf("%w: player is required", ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, venueLockKey(v.Key), playerLockKey(player))
	if err != nil {
		return SubstituteOutcome{}, err
	}
	defer unlock()

	state, err := s.rosters.load(ctx, v)
	if err != nil {
		return SubstituteOutcome{}, err
	}
	if !state.IsSubstitute(player) {
		if err := s.ensureNotSignedElsewhere(ctx, v.Key, player); err != nil {
			return SubstituteOutcome{}, err
		}
	}

	added, err := state.ToggleSubstitute(player, s.now())
	if err != nil {
		return SubstituteOutcome{}, mapDomainError(err)
	}
	s.rosters.refresh(ctx, &state)
	if err := s.rosters.save(ctx, state); err != nil {
		return SubstituteOutcome{}, err
	}

	view, err := s.view(ctx, state)
	if err != nil {
		return SubstituteOutcome{}, err
	}
	return SubstituteOutcome{View: view, Added: added}, nil
}

// Ready marks a signed player as ready. The opponent side of an accepted challenge follows the initiator.
func (s *LineupService) Ready(ctx context.Context, key venue.Key, player roster.PlayerRef) (view LineupView, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Ready", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	return s.mutateReady(ctx, key, func(state *roster.State) error {
		if state.Linked() {
			item, ok, err := findAccepted(ctx, s.challenges, state.Venue.Key)
			if err != nil {
				return err
			}
			if ok && item.OpponentVenue == state.Venue.Key {
				return fmt.Errorf("%w: %s drives this match, ready up from their side", ErrPreconditionFailed, item.InitiatorTeamName)
			}
		}
		return state.MarkReady(player, s.now())
	})
}

func (s *LineupService) Unready(ctx context.Context, key venue.Key, player roster.PlayerRef) (view LineupView, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Unready", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	return s.mutateReady(ctx, key, func(state *roster.State) error {
		return state.ClearReady(player, s.now())
	})
}

func (s *LineupService) mutateReady(ctx context.Context, key venue.Key, mutate func(*roster.State) error) (LineupView, error) {
	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return LineupView{}, err
	}

	unlock, err := s.locks.Lock(ctx, venueLockKey(v.Key))
	if err != nil {
		return LineupView{}, err
	}
	defer unlock()

	state, err := s.rosters.load(ctx, v)
	if err != nil {
		return LineupView{}, err
	}
	if err := mutate(&state); err != nil {
		return LineupView{}, mapDomainError(err)
	}
	s.rosters.refresh(ctx, &state)
	if err := s.rosters.save(ctx, state); err != nil {
		return LineupView{}, err
	}
	return s.view(ctx, state)
}

func (s *LineupService) ensureNotSignedElsewhere(ctx context.Context, key venue.Key, player roster.PlayerRef) error {
	other, slot, found, err := s.rosters.findSignedElsewhere(ctx, key, player)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	where := string(slot.Position)
	if slot.Substitute {
		where = "the bench"
	}
	return withKind(ErrPlayerAlreadySigned, fmt.Errorf("%s is already on %s in %s", player, where, other.Venue.Name))
}

// view evaluates readiness. For a venue in an accepted challenge both sides are judged together.
func (s *LineupService) view(ctx context.Context, state roster.State) (LineupView, error) {
	out := LineupView{Venue: state.Venue, State: state}
	if !state.Linked() {
		out.Ready, out.Verdict = buildMatchup(state, nil, roster.State{}, roster.State{}).check()
		return out, nil
	}

	item, ok, err := findAccepted(ctx, s.challenges, state.Venue.Key)
	if err != nil {
		return LineupView{}, err
	}
	if !ok {
		out.Ready, out.Verdict = buildMatchup(state, nil, roster.State{}, roster.State{}).check()
		return out, nil
	}

	counterpartKey, _ := item.Counterpart(state.Venue.Key)
	counterpart, exists, err := s.rosters.peek(ctx, counterpartKey)
	if err != nil {
		return LineupView{}, err
	}
	if !exists {
		return LineupView{}, errors.New("accepted challenge references a venue without roster")
	}

	initiator, opponent := state, counterpart
	if item.OpponentVenue == state.Venue.Key {
		initiator, opponent = counterpart, state
	}
	out.Counterpart = &counterpart
	out.Challenge = &item
	out.Ready, out.Verdict = buildMatchup(state, &item, initiator, opponent).check()
	return out, nil
}
