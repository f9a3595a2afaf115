package cache

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	basecache "github.com/riskibarqy/pickup-matchmaking/internal/platform/cache"
)

const teamListKey = "team:list:with-venues"

// TeamRepository fronts the roster registry; venue classification reads it on every command.
type TeamRepository struct {
	next  team.Repository
	byID  *basecache.Store[cachedTeamByID]
	lists *basecache.Store[[]team.Team]
}

func NewTeamRepository(next team.Repository, ttl time.Duration) *TeamRepository {
	return &TeamRepository{
		next:  next,
		byID:  basecache.NewStore[cachedTeamByID](ttl),
		lists: basecache.NewStore[[]team.Team](ttl),
	}
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	key := "team:id:" + strings.TrimSpace(teamID)
	cached, err := r.byID.GetOrLoad(ctx, key, func(ctx context.Context) (cachedTeamByID, error) {
		item, exists, err := r.next.GetByID(ctx, teamID)
		if err != nil {
			return cachedTeamByID{}, err
		}
		return cachedTeamByID{value: cloneTeam(item), exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}
	return cloneTeam(cached.value), cached.exists, nil
}

func (r *TeamRepository) ListWithVenues(ctx context.Context) ([]team.Team, error) {
	items, err := r.lists.GetOrLoad(ctx, teamListKey, func(ctx context.Context) ([]team.Team, error) {
		items, err := r.next.ListWithVenues(ctx)
		if err != nil {
			return nil, err
		}
		return cloneTeams(items), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneTeams(items), nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.byID.Delete(ctx, "team:id:"+strings.TrimSpace(item.ID))
	r.lists.DeletePrefix(ctx, "team:list:")
	return nil
}

type cachedTeamByID struct {
	value  team.Team
	exists bool
}

func cloneTeam(item team.Team) team.Team {
	out := item
	out.SixesChannels = append([]string(nil), item.SixesChannels...)
	out.EightsChannels = append([]string(nil), item.EightsChannels...)
	return out
}

func cloneTeams(items []team.Team) []team.Team {
	out := make([]team.Team, len(items))
	for i, item := range items {
		out[i] = cloneTeam(item)
	}
	return out
}

type GameServerRepository struct {
	next  gameserver.Repository
	cache *basecache.Store[[]gameserver.Server]
}

func NewGameServerRepository(next gameserver.Repository, ttl time.Duration) *GameServerRepository {
	return &GameServerRepository{next: next, cache: basecache.NewStore[[]gameserver.Server](ttl)}
}

func (r *GameServerRepository) List(ctx context.Context) ([]gameserver.Server, error) {
	items, err := r.cache.GetOrLoad(ctx, "gameserver:list", func(ctx context.Context) ([]gameserver.Server, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]gameserver.Server(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]gameserver.Server(nil), items...), nil
}

// GetByName resolves against the cached list so lookups stay case-insensitive like the store.
func (r *GameServerRepository) GetByName(ctx context.Context, name string) (gameserver.Server, bool, error) {
	items, err := r.List(ctx)
	if err != nil {
		return gameserver.Server{}, false, err
	}
	name = strings.TrimSpace(name)
	for _, item := range items {
		if strings.EqualFold(item.Name, name) {
			return item, true, nil
		}
	}
	return gameserver.Server{}, false, nil
}
