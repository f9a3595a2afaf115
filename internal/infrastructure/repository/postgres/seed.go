package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo registry into an empty database.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM teams WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count teams for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	teams := NewTeamRepository(db)
	for _, item := range memory.SeedTeams() {
		if err := teams.Upsert(ctx, item); err != nil {
			return fmt.Errorf("seed team %s: %w", item.ID, err)
		}
	}
	servers := NewGameServerRepository(db)
	for _, item := range memory.SeedServers() {
		if err := servers.Upsert(ctx, item); err != nil {
			return fmt.Errorf("seed game server %s: %w", item.Name, err)
		}
	}
	return nil
}
