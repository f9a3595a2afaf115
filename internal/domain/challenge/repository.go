package challenge

import "context"

// Registry is the process-wide table of live challenges. Terminal challenges are deleted, never stored.
type Registry interface {
	Get(ctx context.Context, id string) (Challenge, bool, error)
	List(ctx context.Context) ([]Challenge, error)
	Save(ctx context.Context, item Challenge) error
	Delete(ctx context.Context, id string) error
}
