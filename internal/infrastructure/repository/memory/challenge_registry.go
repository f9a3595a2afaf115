package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
)

type ChallengeRegistry struct {
	mu    sync.RWMutex
	items map[string]challenge.Challenge
}

func NewChallengeRegistry() *ChallengeRegistry {
	return &ChallengeRegistry{items: make(map[string]challenge.Challenge)}
}

func (r *ChallengeRegistry) Get(_ context.Context, id string) (challenge.Challenge, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return challenge.Challenge{}, false, nil
	}
	return item.Clone(), true, nil
}

func (r *ChallengeRegistry) List(_ context.Context) ([]challenge.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]challenge.Challenge, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item.Clone())
	}
	return out, nil
}

// Save rejects terminal statuses; those challenges must be deleted instead.
func (r *ChallengeRegistry) Save(_ context.Context, item challenge.Challenge) error {
	if item.ID == "" {
		return fmt.Errorf("challenge id is required")
	}
	if item.Status.Terminal() {
		return fmt.Errorf("challenge %s is %s and cannot be stored", item.ID, item.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ChallengeRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}
