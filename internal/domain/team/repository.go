package team

import "context"

// Repository is the roster registry as seen by the matchmaking use cases.
type Repository interface {
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	ListWithVenues(ctx context.Context) ([]Team, error)
	Upsert(ctx context.Context, item Team) error
}
