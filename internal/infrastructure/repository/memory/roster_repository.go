package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

// RosterRepository holds roster states in process memory. Values are cloned on the way in and out.
type RosterRepository struct {
	mu     sync.RWMutex
	states map[venue.Key]roster.State
}

func NewRosterRepository() *RosterRepository {
	return &RosterRepository{states: make(map[venue.Key]roster.State)}
}

func (r *RosterRepository) Get(_ context.Context, key venue.Key) (roster.State, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[key]
	if !ok {
		return roster.State{}, false, nil
	}
	return state.Clone(), true, nil
}

func (r *RosterRepository) List(_ context.Context) ([]roster.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]roster.State, 0, len(r.states))
	for _, state := range r.states {
		out = append(out, state.Clone())
	}
	return out, nil
}

func (r *RosterRepository) Save(_ context.Context, state roster.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.Venue.Key] = state.Clone()
	return nil
}

func (r *RosterRepository) Delete(_ context.Context, key venue.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, key)
	return nil
}
