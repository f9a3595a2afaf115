package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultNotifyWorkers = 8
	maxStartAttempts     = 3
)

type HandoffResult struct {
	Match        gameserver.Match
	Participants []roster.PlayerRef
	Venues       []venue.Key
}

// HandoffService turns a ready matchup into a live game session.
type HandoffService struct {
	classifier    *VenueClassifier
	rosters       rosterAccess
	registry      challenge.Registry
	locks         *keyedlock.Locker
	allocator     ServerAllocator
	notifier      Notifier
	announcer     Announcer
	notifyWorkers int
	logger        *logging.Logger
	now           func() time.Time
}

func NewHandoffService(
	classifier *VenueClassifier,
	rosterRepo roster.Repository,
	registry challenge.Registry,
	locks *keyedlock.Locker,
	allocator ServerAllocator,
	notifier Notifier,
	announcer Announcer,
	logger *logging.Logger,
) *HandoffService {
	if logger == nil {
		logger = logging.Default()
	}
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	s := &HandoffService{
		classifier:    classifier,
		registry:      registry,
		locks:         locks,
		allocator:     allocator,
		notifier:      notifier,
		announcer:     announcer,
		notifyWorkers: defaultNotifyWorkers,
		logger:        logger.Named("handoff"),
		now:           time.Now,
	}
	s.rosters = rosterAccess{repo: rosterRepo, notifier: notifier, logger: s.logger, now: s.clock}
	return s
}

func (s *HandoffService) clock() time.Time {
	return s.now()
}

func (s *HandoffService) SetNotifyWorkers(n int) {
	if n > 0 {
		s.notifyWorkers = n
	}
}

// Start re-checks readiness, books a server and clears both rosters.
// Nothing is mutated unless a server was assigned; notification failures do not undo the handoff.
func (s *HandoffService) Start(ctx context.Context, key venue.Key) (result HandoffResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HandoffService.Start", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return HandoffResult{}, err
	}

	var (
		match        gameserver.Match
		states       []roster.State
		participants []roster.PlayerRef
	)
	for attempt := 1; ; attempt++ {
		peeked, linked, err := findAccepted(ctx, s.registry, v.Key)
		if err != nil {
			return HandoffResult{}, err
		}
		lockKeys := []string{venueLockKey(v.Key)}
		if linked {
			lockKeys = append(lockKeys, challengeLockKey(peeked.ID), venueLockKey(peeked.InitiatorVenue), venueLockKey(peeked.OpponentVenue))
		}
		unlock, err := s.locks.Lock(ctx, lockKeys...)
		if err != nil {
			return HandoffResult{}, err
		}

		if !linked {
			// An accept may have linked the venue after the unlocked lookup; the linked lock set is needed then.
			relinked, checkErr := s.linkedUnderLock(ctx, v.Key)
			if checkErr != nil || relinked {
				unlock()
				if checkErr != nil {
					return HandoffResult{}, checkErr
				}
				if attempt >= maxStartAttempts {
					return HandoffResult{}, fmt.Errorf("%w: challenge changed before the match could start, try again", ErrChallengeState)
				}
				continue
			}
		}

		match, states, participants, err = s.clearLocked(ctx, v, peeked, linked)
		unlock()
		if err != nil {
			return HandoffResult{}, err
		}
		break
	}

	s.notifyAll(ctx, match, states, participants)
	if announceErr := s.announcer.AnnounceMatch(ctx, match); announceErr != nil {
		s.logger.WarnContext(ctx, "announce match failed", "venue", v.Key.String(), "error", announceErr)
	}

	venues := make([]venue.Key, 0, len(states))
	for _, state := range states {
		venues = append(venues, state.Venue.Key)
	}
	return HandoffResult{Match: match, Participants: participants, Venues: venues}, nil
}

// linkedUnderLock reports whether the venue joined an accepted challenge. Callers hold the venue lock.
func (s *HandoffService) linkedUnderLock(ctx context.Context, key venue.Key) (bool, error) {
	state, exists, err := s.rosters.peek(ctx, key)
	if err != nil {
		return false, err
	}
	if exists && state.Linked() {
		return true, nil
	}
	_, linked, err := findAccepted(ctx, s.registry, key)
	return linked, err
}

func (s *HandoffService) clearLocked(ctx context.Context, v venue.Venue, peeked challenge.Challenge, linked bool) (gameserver.Match, []roster.State, []roster.PlayerRef, error) {
	var (
		item  *challenge.Challenge
		pair  matchup
		state roster.State
		err   error
	)

	if linked {
		current, exists, getErr := s.registry.Get(ctx, peeked.ID)
		if getErr != nil {
			return gameserver.Match{}, nil, nil, fmt.Errorf("get challenge %s: %w", peeked.ID, getErr)
		}
		if !exists || current.Status != challenge.StatusAccepted || current.OpponentVenue != peeked.OpponentVenue {
			return gameserver.Match{}, nil, nil, fmt.Errorf("%w: challenge changed before the match could start, try again", ErrChallengeState)
		}
		item = &current

		initiator, ok, peekErr := s.rosters.peek(ctx, current.InitiatorVenue)
		if peekErr != nil {
			return gameserver.Match{}, nil, nil, peekErr
		}
		opponent, ok2, peekErr := s.rosters.peek(ctx, current.OpponentVenue)
		if peekErr != nil {
			return gameserver.Match{}, nil, nil, peekErr
		}
		if !ok || !ok2 {
			return gameserver.Match{}, nil, nil, errors.New("accepted challenge references a venue without roster")
		}
		pair = buildMatchup(initiator, item, initiator, opponent)
	} else {
		state, err = s.rosters.load(ctx, v)
		if err != nil {
			return gameserver.Match{}, nil, nil, err
		}
		pair = buildMatchup(state, nil, roster.State{}, roster.State{})
	}

	if ready, reason := pair.check(); !ready {
		return gameserver.Match{}, nil, nil, withKind(ErrNotReady, errors.New(reason))
	}

	assignment, err := s.allocator.SelectServerAndMap(ctx, pair.format)
	if err != nil {
		return gameserver.Match{}, nil, nil, withKind(ErrServerUnavailable, fmt.Errorf("select server for %s: %w", pair.format, err))
	}
	if err := s.allocator.ApplyMapAndConfig(ctx, assignment); err != nil {
		return gameserver.Match{}, nil, nil, withKind(ErrServerUnavailable, fmt.Errorf("apply %s on %s: %w", assignment.Map, assignment.Server.Name, err))
	}

	participants := pair.participants()
	snapshots := []roster.State{pair.home.Clone()}
	if pair.away != nil {
		snapshots = append(snapshots, pair.away.Clone())
	}

	now := s.now()
	for _, snapshot := range snapshots {
		cleared := snapshot.Clone()
		cleared.Reset(now)
		if err := s.rosters.save(ctx, cleared); err != nil {
			return gameserver.Match{}, nil, nil, err
		}
	}
	home, away := pair.names()
	match := gameserver.Match{
		HomeName:   home,
		AwayName:   away,
		Assignment: assignment,
		StartedAt:  now,
	}
	if item != nil {
		match.ChallengeID = item.ID
		if err := s.registry.Delete(ctx, item.ID); err != nil {
			s.logger.ErrorContext(ctx, "remove completed challenge failed", "challenge_id", item.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "match handed off",
		"challenge_id", match.ChallengeID,
		"server", assignment.Server.Name,
		"map", assignment.Map,
		"participants", len(participants),
	)
	return match, snapshots, participants, nil
}

// notifyAll fans out direct messages on a bounded pool, then posts to each venue.
func (s *HandoffService) notifyAll(ctx context.Context, match gameserver.Match, states []roster.State, participants []roster.PlayerRef) {
	message := matchMessage(match)

	var targets []roster.PlayerRef
	for _, player := range participants {
		if player.IsIdentified() {
			targets = append(targets, player)
		}
	}

	if len(targets) > 0 {
		pool, err := ants.NewPool(min(len(targets), s.notifyWorkers))
		if err != nil {
			s.logger.WarnContext(ctx, "create notify pool failed, sending inline", "error", err)
			for _, player := range targets {
				s.notifyPlayer(ctx, player, message)
			}
		} else {
			var workers sync.WaitGroup
			for _, player := range targets {
				workers.Add(1)
				if submitErr := pool.Submit(func() {
					defer workers.Done()
					s.notifyPlayer(ctx, player, message)
				}); submitErr != nil {
					workers.Done()
					s.logger.WarnContext(ctx, "submit participant notification failed", "player", player.String(), "error", submitErr)
				}
			}
			workers.Wait()
			pool.Release()
		}
	}

	for _, state := range states {
		if err := s.notifier.NotifyVenue(ctx, state.Venue.Key, message); err != nil {
			s.logger.WarnContext(ctx, "notify venue failed", "venue", state.Venue.Key.String(), "error", err)
		}
	}
}

func (s *HandoffService) notifyPlayer(ctx context.Context, player roster.PlayerRef, message string) {
	if err := s.notifier.NotifyPlayer(ctx, player, message); err != nil {
		s.logger.WarnContext(ctx, "notify participant failed", "player", player.String(), "error", err)
	}
}

func matchMessage(match gameserver.Match) string {
	title := match.HomeName
	if match.AwayName != "" {
		title = match.HomeName + " vs " + match.AwayName
	}
	return fmt.Sprintf("Match ready: %s on %s (%s, %s). Connect: %s",
		title,
		match.Assignment.Server.Name,
		match.Assignment.Map,
		match.Assignment.Format.Label(),
		match.Assignment.Server.ConnectURL(),
	)
}
