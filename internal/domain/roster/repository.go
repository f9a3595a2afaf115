package roster

import (
	"context"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

// Repository keeps the live per-venue roster records.
type Repository interface {
	Get(ctx context.Context, key venue.Key) (State, bool, error)
	List(ctx context.Context) ([]State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, key venue.Key) error
}
