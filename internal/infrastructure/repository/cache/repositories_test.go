package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	teammock "github.com/riskibarqy/pickup-matchmaking/internal/mocks/domain/team"
	"github.com/stretchr/testify/mock"
)

func TestTeamRepository_CachesAndInvalidatesUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	next := teammock.NewRepository(t)
	blueLock := team.Team{ID: "1", Name: "Blue Lock", EightsChannels: []string{"12"}}
	renamed := team.Team{ID: "1", Name: "Blue Lock FC", EightsChannels: []string{"12"}}
	anyCtx := mock.MatchedBy(func(v context.Context) bool { return v != nil })

	next.On("GetByID", anyCtx, "1").Return(blueLock, true, nil).Once()
	next.On("Upsert", anyCtx, renamed).Return(nil).Once()
	next.On("GetByID", anyCtx, "1").Return(renamed, true, nil).Once()

	repo := NewTeamRepository(next, time.Minute)
	for range 3 {
		got, exists, err := repo.GetByID(ctx, "1")
		if err != nil || !exists || got.Name != "Blue Lock" {
			t.Fatalf("cached get: %+v %v %v", got, exists, err)
		}
	}

	if err := repo.Upsert(ctx, renamed); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _, err := repo.GetByID(ctx, "1")
	if err != nil || got.Name != "Blue Lock FC" {
		t.Fatalf("upsert must invalidate the cached team, got %+v %v", got, err)
	}
}

func TestTeamRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	next := teammock.NewRepository(t)
	next.
		On("ListWithVenues", mock.Anything).
		Return([]team.Team{{ID: "1", Name: "Blue Lock", EightsChannels: []string{"12"}}}, nil).
		Once()

	repo := NewTeamRepository(next, time.Minute)
	first, err := repo.ListWithVenues(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first[0].EightsChannels[0] = "mutated"

	second, err := repo.ListWithVenues(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if second[0].EightsChannels[0] != "12" {
		t.Fatalf("cached teams leaked a caller mutation: %v", second[0].EightsChannels)
	}
}

type countingServers struct {
	calls atomic.Int32
	err   error
}

func (c *countingServers) List(context.Context) ([]gameserver.Server, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []gameserver.Server{{Name: "NA East #1", Address: "127.0.0.1:27015"}}, nil
}

func (c *countingServers) GetByName(context.Context, string) (gameserver.Server, bool, error) {
	return gameserver.Server{}, false, errors.New("not used")
}

func TestGameServerRepository_GetByNameUsesCachedList(t *testing.T) {
	t.Parallel()

	next := &countingServers{}
	repo := NewGameServerRepository(next, time.Minute)

	for _, name := range []string{"na east #1", "NA EAST #1 "} {
		item, exists, err := repo.GetByName(t.Context(), name)
		if err != nil || !exists || item.Address != "127.0.0.1:27015" {
			t.Fatalf("get %q: %+v %v %v", name, item, exists, err)
		}
	}
	if _, exists, _ := repo.GetByName(t.Context(), "EU #1"); exists {
		t.Fatalf("unknown server must not resolve")
	}
	if next.calls.Load() != 1 {
		t.Fatalf("expected one backing load, got %d", next.calls.Load())
	}
}
