package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/memory"
	challengemock "github.com/riskibarqy/pickup-matchmaking/internal/mocks/domain/challenge"
	gameservermock "github.com/riskibarqy/pickup-matchmaking/internal/mocks/domain/gameserver"
	teammock "github.com/riskibarqy/pickup-matchmaking/internal/mocks/domain/team"
	usecasemock "github.com/riskibarqy/pickup-matchmaking/internal/mocks/usecase"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func anyContext() any {
	return mock.MatchedBy(func(v context.Context) bool { return v != nil })
}

func TestVenueClassifier_Resolve_RegistryFailureUsingMockery(t *testing.T) {
	t.Parallel()

	teamRepo := teammock.NewRepository(t)
	teamRepo.
		On("GetByID", anyContext(), blueLockID).
		Return(team.Team{}, false, errors.New("connection refused")).
		Once()

	classifier := NewVenueClassifier(teamRepo, nil)
	_, err := classifier.Resolve(t.Context(), blueLockEights)
	if !errors.Is(err, ErrRegistryFailure) || !errors.Is(err, ErrExternalUnavailable) {
		t.Fatalf("expected ErrRegistryFailure, got %v", err)
	}
}

func TestChallengeService_Broadcast_RegistryFailureUsingMockery(t *testing.T) {
	t.Parallel()

	blueLock := testTeams()[0]
	teamRepo := teammock.NewRepository(t)
	teamRepo.
		On("GetByID", anyContext(), blueLockID).
		Return(blueLock, true, nil).
		Once()
	teamRepo.
		On("ListWithVenues", anyContext()).
		Return(nil, errors.New("timeout")).
		Once()

	notifier := newRecordingNotifier()
	svc := NewChallengeService(
		NewVenueClassifier(teamRepo, nil),
		teamRepo,
		memory.NewRosterRepository(),
		memory.NewChallengeRegistry(),
		keyedlock.New(),
		notifier,
		nil,
		nil,
		fixedIDs{},
		logging.NewNop(),
	)

	_, err := svc.Issue(t.Context(), IssueChallengeInput{Venue: blueLockEights, Target: challenge.TargetBroadcast})
	if !errors.Is(err, ErrRegistryFailure) {
		t.Fatalf("expected ErrRegistryFailure, got %v", err)
	}
	if len(notifier.offers) != 0 {
		t.Fatalf("no offers must be posted when the registry is down")
	}
}

func TestAlertService_ServerStatuses_FailureUsingMockery(t *testing.T) {
	t.Parallel()

	allocator := usecasemock.NewServerAllocator(t)
	allocator.
		On("Statuses", anyContext()).
		Return(nil, errors.New("rcon: i/o timeout")).
		Once()

	svc := NewAlertService(nil, nil, nil, allocator, newRecordingNotifier(), nil, nil, logging.NewNop())
	if _, err := svc.ServerStatuses(t.Context()); !errors.Is(err, ErrExternalUnavailable) {
		t.Fatalf("expected ErrExternalUnavailable, got %v", err)
	}
}

func TestAlertService_RequestSub_ServerLookupFailureUsingMockery(t *testing.T) {
	t.Parallel()

	serverRepo := gameservermock.NewRepository(t)
	serverRepo.
		On("GetByName", anyContext(), "NA East #1").
		Return(gameserver.Server{}, false, errors.New("db down")).
		Once()

	classifier := NewVenueClassifier(memory.NewTeamRepository(testTeams()), nil)
	svc := NewAlertService(classifier, memory.NewRosterRepository(), serverRepo, nil, newRecordingNotifier(), nil, nil, logging.NewNop())

	err := svc.RequestSub(t.Context(), RequestSubInput{Venue: blueLockEights, ServerName: "NA East #1", Position: "GK"})
	if !errors.Is(err, ErrRegistryFailure) {
		t.Fatalf("expected ErrRegistryFailure, got %v", err)
	}
}

func TestHandoffService_Start_UsesAllocatorOnceUsingMockery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testTeams())
	f.fillLineup(t, blueLockEights, 0, "blue")

	assignment := gameserver.Assignment{
		Server: gameserver.Server{Name: "NA West #1", Address: "127.0.0.1:27016"},
		Map:    "8v8_coral",
		Format: formation.FormatEights,
	}
	allocator := usecasemock.NewServerAllocator(t)
	allocator.
		On("SelectServerAndMap", anyContext(), formation.FormatEights).
		Return(assignment, nil).
		Once()
	allocator.
		On("ApplyMapAndConfig", anyContext(), assignment).
		Return(nil).
		Once()

	svc := NewHandoffService(f.classifier, f.rosters, f.challenges, keyedlock.New(), allocator, f.notifier, nil, logging.NewNop())
	result, err := svc.Start(t.Context(), blueLockEights)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.Match.Assignment.Server.Name != "NA West #1" {
		t.Fatalf("unexpected assignment: %+v", result.Match.Assignment)
	}
}

func TestHandoffService_Start_ChallengeListFailureUsingMockery(t *testing.T) {
	t.Parallel()

	registry := challengemock.NewRegistry(t)
	registry.
		On("List", anyContext()).
		Return(nil, errors.New("registry unavailable")).
		Once()

	classifier := NewVenueClassifier(memory.NewTeamRepository(testTeams()), nil)
	svc := NewHandoffService(classifier, memory.NewRosterRepository(), registry, keyedlock.New(), usecasemock.NewServerAllocator(t), newRecordingNotifier(), nil, logging.NewNop())

	if _, err := svc.Start(t.Context(), blueLockEights); err == nil {
		t.Fatalf("expected the registry error to surface")
	}
}
