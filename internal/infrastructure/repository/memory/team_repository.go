package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[string]team.Team
	order []string
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	r := &TeamRepository{teams: make(map[string]team.Team, len(teams))}
	for _, item := range teams {
		_ = r.Upsert(context.Background(), item)
	}
	return r
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.teams[strings.TrimSpace(teamID)]
	if !ok {
		return team.Team{}, false, nil
	}
	return cloneTeam(item), true, nil
}

func (r *TeamRepository) ListWithVenues(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.order))
	for _, teamID := range r.order {
		item := r.teams[teamID]
		if item.HasVenues() {
			out = append(out, cloneTeam(item))
		}
	}
	return out, nil
}

func (r *TeamRepository) Upsert(_ context.Context, item team.Team) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[item.ID]; !exists {
		r.order = append(r.order, item.ID)
	}
	r.teams[item.ID] = cloneTeam(item)
	return nil
}

func cloneTeam(item team.Team) team.Team {
	item.SixesChannels = slices.Clone(item.SixesChannels)
	item.EightsChannels = slices.Clone(item.EightsChannels)
	return item
}
