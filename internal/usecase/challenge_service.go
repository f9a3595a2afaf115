package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/id"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type IssueChallengeInput struct {
	Venue  venue.Key
	Target challenge.TargetKind
	// TargetTeamID names the challenged team for direct challenges.
	TargetTeamID string
	// TargetVenue names the shared venue for shared-venue challenges.
	TargetVenue venue.Key
}

type RespondChallengeInput struct {
	ChallengeID string
	Venue       venue.Key
}

type CancelChallengeInput struct {
	Venue venue.Key
	// ChallengeID is optional; without it the venue's accepted challenge wins over its pending one.
	ChallengeID string
}

type CancelOutcome struct {
	Challenge challenge.Challenge
	// ByInitiator is false when the opponent left an accepted challenge.
	ByInitiator bool
}

type ChallengeService struct {
	classifier *VenueClassifier
	teams      team.Repository
	rosters    rosterAccess
	registry   challenge.Registry
	locks      *keyedlock.Locker
	notifier   Notifier
	announcer  Announcer
	broadcasts *CooldownTracker
	ids        id.Generator
	logger     *logging.Logger
	now        func() time.Time
}

func NewChallengeService(
	classifier *VenueClassifier,
	teamRepo team.Repository,
	rosterRepo roster.Repository,
	registry challenge.Registry,
	locks *keyedlock.Locker,
	notifier Notifier,
	announcer Announcer,
	broadcasts *CooldownTracker,
	ids id.Generator,
	logger *logging.Logger,
) *ChallengeService {
	if logger == nil {
		logger = logging.Default()
	}
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	if broadcasts == nil {
		broadcasts = NewCooldownTracker(DefaultBroadcastCooldown)
	}
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	s := &ChallengeService{
		classifier: classifier,
		teams:      teamRepo,
		registry:   registry,
		locks:      locks,
		notifier:   notifier,
		announcer:  announcer,
		broadcasts: broadcasts,
		ids:        ids,
		logger:     logger.Named("challenge"),
		now:        time.Now,
	}
	s.rosters = rosterAccess{repo: rosterRepo, notifier: notifier, logger: s.logger, now: s.clock}
	return s
}

func (s *ChallengeService) clock() time.Time {
	return s.now()
}

// Issue creates a challenge from a team venue. Shared-venue targets are accepted on the spot.
func (s *ChallengeService) Issue(ctx context.Context, input IssueChallengeInput) (item challenge.Challenge, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChallengeService.Issue",
		attribute.String("venue", input.Venue.String()),
		attribute.String("target_kind", string(input.Target)),
	)
	defer func() { endSpan(span, err) }()

	initiator, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if !initiator.IsTeam() {
		return challenge.Challenge{}, fmt.Errorf("%w: challenges are issued from a team channel", ErrInvalidInput)
	}

	kind := input.Target
	if kind == challenge.TargetDirectTeam && input.TargetTeamID == "" {
		if _, ok := s.classifier.SharedVenue(input.TargetVenue); ok {
			kind = challenge.TargetSharedVenue
		}
	}

	lockKeys := []string{outgoingLockKey(initiator.OwningTeamID, initiator.Format), venueLockKey(initiator.Key)}
	var sharedTarget venue.Venue
	switch kind {
	case challenge.TargetBroadcast:
	case challenge.TargetDirectTeam:
		if strings.TrimSpace(input.TargetTeamID) == "" {
			return challenge.Challenge{}, fmt.Errorf("%w: target team is required", ErrInvalidInput)
		}
	case challenge.TargetSharedVenue:
		target, ok := s.classifier.SharedVenue(input.TargetVenue)
		if !ok {
			return challenge.Challenge{}, fmt.Errorf("%w: %s is not a shared venue", ErrNotAMatchmakingVenue, input.TargetVenue)
		}
		if target.Format != initiator.Format {
			return challenge.Challenge{}, fmt.Errorf("%w: %s plays %s, this channel plays %s", ErrInvalidFormat, target.Name, target.Format, initiator.Format)
		}
		sharedTarget = target
		lockKeys = append(lockKeys, venueLockKey(target.Key))
	default:
		return challenge.Challenge{}, fmt.Errorf("%w: unknown challenge target %q", ErrInvalidInput, input.Target)
	}

	unlock, err := s.locks.Lock(ctx, lockKeys...)
	if err != nil {
		return challenge.Challenge{}, err
	}
	defer unlock()

	live, err := s.registry.List(ctx)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("list challenges: %w", err)
	}
	for _, existing := range live {
		if existing.InitiatorTeamID == initiator.OwningTeamID && existing.Format == initiator.Format {
			return challenge.Challenge{}, fmt.Errorf("%w: %s", ErrDuplicateOutgoingChallenge, existing.ID)
		}
		if existing.Status == challenge.StatusAccepted && existing.Involves(initiator.Key) {
			return challenge.Challenge{}, fmt.Errorf("%w: this channel is already playing %s", ErrVenueBusy, existing.ID)
		}
	}

	now := s.now()
	challengeID, err := id.ChallengeID(s.ids, initiator.Name, now)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("generate challenge id: %w", err)
	}
	item = challenge.Challenge{
		ID:                challengeID,
		InitiatorVenue:    initiator.Key,
		InitiatorTeamID:   initiator.OwningTeamID,
		InitiatorTeamName: initiator.Name,
		Format:            initiator.Format,
		TargetKind:        kind,
		CreatedAt:         now,
		BroadcastRefs:     map[venue.Key]challenge.Offer{},
	}

	switch kind {
	case challenge.TargetBroadcast:
		item, err = s.issueBroadcast(ctx, item, live)
	case challenge.TargetDirectTeam:
		item, err = s.issueDirect(ctx, item, input.TargetTeamID, live)
	case challenge.TargetSharedVenue:
		item, err = s.issueToSharedVenue(ctx, item, sharedTarget)
	}
	if err != nil {
		return challenge.Challenge{}, err
	}

	if err := s.registry.Save(ctx, item); err != nil {
		s.withdrawOffers(ctx, item)
		return challenge.Challenge{}, fmt.Errorf("save challenge: %w", err)
	}
	s.logger.InfoContext(ctx, "challenge issued",
		"challenge_id", item.ID,
		"target_kind", string(item.TargetKind),
		"status", string(item.Status),
		"recipients", len(item.BroadcastRefs),
	)

	if announceErr := s.announcer.AnnounceChallenge(ctx, item.Clone()); announceErr != nil {
		s.logger.WarnContext(ctx, "announce challenge failed", "challenge_id", item.ID, "error", announceErr)
	}
	return item.Clone(), nil
}

func (s *ChallengeService) issueBroadcast(ctx context.Context, item challenge.Challenge, live []challenge.Challenge) (challenge.Challenge, error) {
	cooldownKey := broadcastCooldownKey(item.InitiatorTeamID)
	if remaining := s.broadcasts.Remaining(cooldownKey); remaining > 0 {
		return challenge.Challenge{}, &CooldownError{Scope: "broadcast challenge", Remaining: remaining}
	}

	teams, err := s.teams.ListWithVenues(ctx)
	if err != nil {
		return challenge.Challenge{}, withKind(ErrRegistryFailure, fmt.Errorf("list teams with venues: %w", err))
	}
	busy := make(map[string]struct{})
	for _, existing := range live {
		if existing.Status != challenge.StatusAccepted {
			continue
		}
		busy[existing.InitiatorTeamID] = struct{}{}
		if existing.OpponentTeamID != "" {
			busy[existing.OpponentTeamID] = struct{}{}
		}
	}

	item.Status = challenge.StatusPendingBroadcast
	item.TargetName = "all teams"
	for _, candidate := range teams {
		if candidate.ID == item.InitiatorTeamID {
			continue
		}
		if _, ok := busy[candidate.ID]; ok {
			continue
		}
		for _, channelID := range candidate.Channels(item.Format) {
			s.postOffer(ctx, &item, venue.NewKey(candidate.ID, channelID), candidate)
		}
	}

	// The cooldown counts every fan-out, even one that reached nobody.
	s.broadcasts.Mark(cooldownKey)
	if len(item.BroadcastRefs) == 0 {
		return challenge.Challenge{}, fmt.Errorf("%w: no other team has a %s channel available", ErrNoRecipients, item.Format)
	}
	return item, nil
}

func (s *ChallengeService) issueDirect(ctx context.Context, item challenge.Challenge, targetTeamID string, live []challenge.Challenge) (challenge.Challenge, error) {
	target, exists, err := s.teams.GetByID(ctx, targetTeamID)
	if err != nil {
		return challenge.Challenge{}, withKind(ErrRegistryFailure, fmt.Errorf("get team %s: %w", targetTeamID, err))
	}
	if !exists {
		return challenge.Challenge{}, fmt.Errorf("%w: team %s is not registered", ErrInvalidInput, targetTeamID)
	}
	if target.ID == item.InitiatorTeamID {
		return challenge.Challenge{}, fmt.Errorf("%w: a team cannot challenge itself", ErrInvalidInput)
	}
	for _, existing := range live {
		if existing.Status == challenge.StatusAccepted && existing.InvolvesTeam(target.ID) {
			return challenge.Challenge{}, fmt.Errorf("%w: %s is already in a match", ErrVenueBusy, target.Name)
		}
	}

	item.Status = challenge.StatusPendingDirect
	item.TargetID = target.ID
	item.TargetName = target.Name
	for _, channelID := range target.Channels(item.Format) {
		s.postOffer(ctx, &item, venue.NewKey(target.ID, channelID), target)
	}
	if len(item.BroadcastRefs) == 0 {
		return challenge.Challenge{}, fmt.Errorf("%w: %s has no %s channel", ErrNoRecipients, target.Name, item.Format)
	}
	return item, nil
}

// issueToSharedVenue links the initiator with a shared venue without waiting for anyone.
func (s *ChallengeService) issueToSharedVenue(ctx context.Context, item challenge.Challenge, target venue.Venue) (challenge.Challenge, error) {
	initiatorState, err := s.rosters.load(ctx, venue.Venue{Key: item.InitiatorVenue, Format: item.Format, Role: venue.RoleTeam, OwningTeamID: item.InitiatorTeamID, Name: item.InitiatorTeamName})
	if err != nil {
		return challenge.Challenge{}, err
	}
	targetState, err := s.rosters.load(ctx, target)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if targetState.Linked() || targetState.ChallengeFlags != nil {
		return challenge.Challenge{}, fmt.Errorf("%w: %s is already hosting a challenge", ErrVenueBusy, target.Name)
	}

	now := s.now()
	item.Status = challenge.StatusPendingDirect
	item.TargetID = target.Key.String()
	item.TargetName = target.Name
	if err := item.Apply(challenge.EventAccept); err != nil {
		return challenge.Challenge{}, mapDomainError(err)
	}
	item.AcceptedAt = &now
	item.OpponentVenue = target.Key
	item.OpponentTeamName = fmt.Sprintf("%s (vs %s)", target.Name, item.InitiatorTeamName)
	item.BroadcastRefs = nil

	targetState.InjectChallengeFlags(roster.ChallengeFlags{ChallengerName: item.InitiatorTeamName, Format: item.Format}, now)
	targetState.LinkedVenue = item.InitiatorVenue
	initiatorState.LinkedVenue = target.Key

	s.rosters.refresh(ctx, &targetState)
	s.rosters.refresh(ctx, &initiatorState)
	if err := s.rosters.save(ctx, targetState); err != nil {
		return challenge.Challenge{}, err
	}
	if err := s.rosters.save(ctx, initiatorState); err != nil {
		return challenge.Challenge{}, err
	}

	s.notifyVenue(ctx, target.Key, fmt.Sprintf("%s challenged this channel. Team 1 now plays against them; sign up to take them on.", item.InitiatorTeamName))
	return item, nil
}

// Accept hands the challenge to the accepting venue once its roster passes the readiness check.
func (s *ChallengeService) Accept(ctx context.Context, input RespondChallengeInput) (item challenge.Challenge, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChallengeService.Accept", attribute.String("challenge_id", input.ChallengeID))
	defer func() { endSpan(span, err) }()

	acceptor, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if !acceptor.IsTeam() {
		return challenge.Challenge{}, fmt.Errorf("%w: challenges are accepted from a team channel", ErrInvalidInput)
	}

	peeked, err := s.get(ctx, input.ChallengeID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	unlock, err := s.locks.Lock(ctx, challengeLockKey(peeked.ID), venueLockKey(peeked.InitiatorVenue), venueLockKey(acceptor.Key))
	if err != nil {
		return challenge.Challenge{}, err
	}
	defer unlock()

	item, err = s.get(ctx, input.ChallengeID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if !item.Status.Pending() {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge is %s", ErrChallengeState, item.Status)
	}
	if acceptor.Key == item.InitiatorVenue || acceptor.OwningTeamID == item.InitiatorTeamID {
		return challenge.Challenge{}, fmt.Errorf("%w: a team cannot accept its own challenge", ErrInvalidInput)
	}
	switch item.Status {
	case challenge.StatusPendingDirect:
		if acceptor.OwningTeamID != item.TargetID {
			return challenge.Challenge{}, fmt.Errorf("%w: this challenge was sent to %s", ErrNotTargetedTeam, item.TargetName)
		}
	case challenge.StatusPendingBroadcast:
		if _, ok := item.BroadcastRefs[acceptor.Key]; !ok {
			return challenge.Challenge{}, fmt.Errorf("%w: this channel did not receive the challenge", ErrNotTargetedTeam)
		}
	}
	if acceptor.Format != item.Format {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge is %s, this channel plays %s", ErrInvalidFormat, item.Format, acceptor.Format)
	}

	live, err := s.registry.List(ctx)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("list challenges: %w", err)
	}
	for _, existing := range live {
		if existing.ID == item.ID || existing.Status != challenge.StatusAccepted {
			continue
		}
		if existing.Involves(acceptor.Key) || existing.Involves(item.InitiatorVenue) {
			return challenge.Challenge{}, fmt.Errorf("%w: %s", ErrVenueBusy, existing.ID)
		}
	}

	acceptorState, err := s.rosters.load(ctx, acceptor)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if ready, reason := roster.CheckReady(item.Format, firstLineup(acceptorState).WithName(acceptor.Name)); !ready {
		return challenge.Challenge{}, withKind(ErrNotReady, errors.New(reason))
	}
	initiatorState, err := s.rosters.load(ctx, s.initiatorVenue(item))
	if err != nil {
		return challenge.Challenge{}, err
	}

	if err := item.Apply(challenge.EventAccept); err != nil {
		return challenge.Challenge{}, mapDomainError(err)
	}
	now := s.now()
	item.AcceptedAt = &now
	item.OpponentVenue = acceptor.Key
	item.OpponentTeamID = acceptor.OwningTeamID
	item.OpponentTeamName = acceptor.Name

	for target, offer := range item.BroadcastRefs {
		note := "Accepted by " + acceptor.Name
		if target == acceptor.Key {
			note = "You accepted this challenge"
		}
		s.resolveOffer(ctx, item.ID, target, offer, note)
	}
	item.BroadcastRefs = nil

	acceptorState.LinkedVenue = item.InitiatorVenue
	initiatorState.LinkedVenue = acceptor.Key
	s.rosters.refresh(ctx, &acceptorState)
	s.rosters.refresh(ctx, &initiatorState)
	if err := s.rosters.save(ctx, acceptorState); err != nil {
		return challenge.Challenge{}, err
	}
	if err := s.rosters.save(ctx, initiatorState); err != nil {
		return challenge.Challenge{}, err
	}
	if err := s.registry.Save(ctx, item); err != nil {
		return challenge.Challenge{}, fmt.Errorf("save challenge: %w", err)
	}

	s.notifyVenue(ctx, item.InitiatorVenue, fmt.Sprintf("%s accepted your %s challenge.", acceptor.Name, item.Format.Label()))
	s.logger.InfoContext(ctx, "challenge accepted", "challenge_id", item.ID, "opponent", acceptor.Key.String())
	return item.Clone(), nil
}

// Decline removes a direct challenge, or withdraws one recipient's copy of a broadcast.
func (s *ChallengeService) Decline(ctx context.Context, input RespondChallengeInput) (item challenge.Challenge, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChallengeService.Decline", attribute.String("challenge_id", input.ChallengeID))
	defer func() { endSpan(span, err) }()

	decliner, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return challenge.Challenge{}, err
	}

	unlock, err := s.locks.Lock(ctx, challengeLockKey(input.ChallengeID))
	if err != nil {
		return challenge.Challenge{}, err
	}
	defer unlock()

	item, err = s.get(ctx, input.ChallengeID)
	if err != nil {
		return challenge.Challenge{}, err
	}

	switch item.Status {
	case challenge.StatusPendingBroadcast:
		offer, ok := item.BroadcastRefs[decliner.Key]
		if !ok {
			return challenge.Challenge{}, fmt.Errorf("%w: this channel did not receive the challenge", ErrNotTargetedTeam)
		}
		if withdrawErr := s.notifier.WithdrawChallengeOffer(ctx, decliner.Key, offer.MessageID); withdrawErr != nil {
			s.logger.WarnContext(ctx, "withdraw challenge offer failed", "challenge_id", item.ID, "venue", decliner.Key.String(), "error", withdrawErr)
		}
		delete(item.BroadcastRefs, decliner.Key)
		if err := s.registry.Save(ctx, item); err != nil {
			return challenge.Challenge{}, fmt.Errorf("save challenge: %w", err)
		}
		return item.Clone(), nil
	case challenge.StatusPendingDirect:
		if !decliner.IsTeam() || decliner.OwningTeamID != item.TargetID {
			return challenge.Challenge{}, fmt.Errorf("%w: this challenge was sent to %s", ErrNotTargetedTeam, item.TargetName)
		}
	}

	if err := item.Apply(challenge.EventDecline); err != nil {
		return challenge.Challenge{}, mapDomainError(err)
	}
	for target, offer := range item.BroadcastRefs {
		s.resolveOffer(ctx, item.ID, target, offer, "Declined by "+decliner.Name)
	}
	item.BroadcastRefs = nil
	if err := s.registry.Delete(ctx, item.ID); err != nil {
		return challenge.Challenge{}, fmt.Errorf("delete challenge: %w", err)
	}

	s.notifyVenue(ctx, item.InitiatorVenue, fmt.Sprintf("%s declined your %s challenge.", decliner.Name, item.Format.Label()))
	return item.Clone(), nil
}

// Cancel ends the venue's challenge. The initiator may cancel at any live status;
// the opponent of an accepted challenge leaves it. Both sides are reverted either way.
func (s *ChallengeService) Cancel(ctx context.Context, input CancelChallengeInput) (outcome CancelOutcome, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChallengeService.Cancel", attribute.String("venue", input.Venue.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return CancelOutcome{}, err
	}

	peeked, err := s.cancellable(ctx, v.Key, input.ChallengeID)
	if err != nil {
		return CancelOutcome{}, err
	}
	lockKeys := []string{challengeLockKey(peeked.ID), venueLockKey(peeked.InitiatorVenue), venueLockKey(v.Key)}
	if !peeked.OpponentVenue.IsZero() {
		lockKeys = append(lockKeys, venueLockKey(peeked.OpponentVenue))
	}
	unlock, err := s.locks.Lock(ctx, lockKeys...)
	if err != nil {
		return CancelOutcome{}, err
	}
	defer unlock()

	item, err := s.get(ctx, peeked.ID)
	if err != nil {
		return CancelOutcome{}, err
	}
	if item.OpponentVenue != peeked.OpponentVenue {
		return CancelOutcome{}, fmt.Errorf("%w: challenge changed while cancelling, try again", ErrChallengeState)
	}

	byInitiator := item.InitiatorVenue == v.Key
	switch {
	case byInitiator:
		err = item.Apply(challenge.EventCancelByInitiator)
	case item.OpponentVenue == v.Key:
		err = item.Apply(challenge.EventLeaveByOpponent)
	default:
		return CancelOutcome{}, fmt.Errorf("%w: %s", ErrNotChallengeMember, item.ID)
	}
	if err != nil {
		return CancelOutcome{}, mapDomainError(err)
	}

	for target, offer := range item.BroadcastRefs {
		s.resolveOffer(ctx, item.ID, target, offer, "Cancelled by "+item.InitiatorTeamName)
	}
	item.BroadcastRefs = nil

	if !item.OpponentVenue.IsZero() {
		if err := s.revert(ctx, item.InitiatorVenue); err != nil {
			return CancelOutcome{}, err
		}
		if err := s.revert(ctx, item.OpponentVenue); err != nil {
			return CancelOutcome{}, err
		}
	}
	if err := s.registry.Delete(ctx, item.ID); err != nil {
		return CancelOutcome{}, fmt.Errorf("delete challenge: %w", err)
	}

	if !item.OpponentVenue.IsZero() {
		other, name := item.OpponentVenue, item.InitiatorTeamName
		if !byInitiator {
			other, name = item.InitiatorVenue, item.OpponentTeamName
		}
		s.notifyVenue(ctx, other, fmt.Sprintf("%s called off the %s challenge.", name, item.Format.Label()))
	}
	s.logger.InfoContext(ctx, "challenge cancelled", "challenge_id", item.ID, "status", string(item.Status))
	return CancelOutcome{Challenge: item.Clone(), ByInitiator: byInitiator}, nil
}

// List returns live challenges, oldest first.
func (s *ChallengeService) List(ctx context.Context) ([]challenge.Challenge, error) {
	items, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	sortChallenges(items)
	return items, nil
}

// ListForVenue returns challenges the venue issued, received or is playing.
func (s *ChallengeService) ListForVenue(ctx context.Context, key venue.Key) ([]challenge.Challenge, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, item := range items {
		if _, received := item.BroadcastRefs[key]; received || item.Involves(key) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *ChallengeService) get(ctx context.Context, challengeID string) (challenge.Challenge, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return challenge.Challenge{}, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}
	item, exists, err := s.registry.Get(ctx, challengeID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("get challenge %s: %w", challengeID, err)
	}
	if !exists {
		return challenge.Challenge{}, fmt.Errorf("%w: %s", ErrChallengeNotFound, challengeID)
	}
	return item, nil
}

func (s *ChallengeService) cancellable(ctx context.Context, key venue.Key, challengeID string) (challenge.Challenge, error) {
	if challengeID != "" {
		return s.get(ctx, challengeID)
	}
	items, err := s.List(ctx)
	if err != nil {
		return challenge.Challenge{}, err
	}
	var pending *challenge.Challenge
	for i := range items {
		item := items[i]
		if item.Status == challenge.StatusAccepted && item.Involves(key) {
			return item, nil
		}
		if pending == nil && item.InitiatorVenue == key {
			pending = &items[i]
		}
	}
	if pending != nil {
		return *pending, nil
	}
	return challenge.Challenge{}, fmt.Errorf("%w: this channel has no active challenge", ErrChallengeNotFound)
}

// revert unlinks a venue from its challenge and drops any injected challenge flags.
func (s *ChallengeService) revert(ctx context.Context, key venue.Key) error {
	state, exists, err := s.rosters.peek(ctx, key)
	if err != nil || !exists {
		return err
	}
	now := s.now()
	state.LinkedVenue = venue.Key{}
	if state.ChallengeFlags != nil {
		state.ClearChallengeFlags(now)
	}
	state.UpdatedAt = now
	s.rosters.refresh(ctx, &state)
	return s.rosters.save(ctx, state)
}

func (s *ChallengeService) initiatorVenue(item challenge.Challenge) venue.Venue {
	return venue.Venue{
		Key:          item.InitiatorVenue,
		Format:       item.Format,
		Role:         venue.RoleTeam,
		OwningTeamID: item.InitiatorTeamID,
		Name:         item.InitiatorTeamName,
	}
}

// withdrawOffers pulls every posted offer of a challenge that was never stored.
func (s *ChallengeService) withdrawOffers(ctx context.Context, item challenge.Challenge) {
	for target, offer := range item.BroadcastRefs {
		if offer.MessageID == "" {
			continue
		}
		if err := s.notifier.WithdrawChallengeOffer(ctx, target, offer.MessageID); err != nil {
			s.logger.WarnContext(ctx, "withdraw unsaved challenge offer failed", "challenge_id", item.ID, "venue", target.String(), "error", err)
		}
	}
}

func (s *ChallengeService) postOffer(ctx context.Context, item *challenge.Challenge, target venue.Key, recipient team.Team) {
	messageID, err := s.notifier.PostChallengeOffer(ctx, target, item.Clone())
	if err != nil {
		s.logger.WarnContext(ctx, "post challenge offer failed", "challenge_id", item.ID, "venue", target.String(), "error", err)
		return
	}
	item.BroadcastRefs[target] = challenge.Offer{
		TeamID:    recipient.ID,
		TeamName:  recipient.Name,
		MessageID: messageID,
		PostedAt:  s.now(),
	}
}

func (s *ChallengeService) resolveOffer(ctx context.Context, challengeID string, target venue.Key, offer challenge.Offer, note string) {
	if err := s.notifier.ResolveChallengeOffer(ctx, target, offer.MessageID, note); err != nil {
		s.logger.WarnContext(ctx, "resolve challenge offer failed", "challenge_id", challengeID, "venue", target.String(), "error", err)
	}
}

func (s *ChallengeService) notifyVenue(ctx context.Context, key venue.Key, message string) {
	if err := s.notifier.NotifyVenue(ctx, key, message); err != nil {
		s.logger.WarnContext(ctx, "notify venue failed", "venue", key.String(), "error", err)
	}
}
