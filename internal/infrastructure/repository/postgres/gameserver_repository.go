package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	qb "github.com/riskibarqy/pickup-matchmaking/internal/platform/querybuilder"
)

type GameServerRepository struct {
	db *sqlx.DB
}

func NewGameServerRepository(db *sqlx.DB) *GameServerRepository {
	return &GameServerRepository{db: db}
}

func (r *GameServerRepository) List(ctx context.Context) ([]gameserver.Server, error) {
	query, args, err := qb.Select("*").From("game_servers").
		Where(qb.IsNull("deleted_at")).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select game servers query: %w", err)
	}

	var rows []gameServerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select game servers: %w", err)
	}

	out := make([]gameserver.Server, 0, len(rows))
	for _, row := range rows {
		out = append(out, toServer(row))
	}
	return out, nil
}

func (r *GameServerRepository) GetByName(ctx context.Context, name string) (gameserver.Server, bool, error) {
	query, args, err := qb.Select("*").From("game_servers").
		Where(
			qb.Expr("LOWER(name) = LOWER(?)", strings.TrimSpace(name)),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return gameserver.Server{}, false, fmt.Errorf("build select game server query: %w", err)
	}

	var row gameServerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return gameserver.Server{}, false, nil
		}
		return gameserver.Server{}, false, fmt.Errorf("get game server: %w", err)
	}
	return toServer(row), true, nil
}

func (r *GameServerRepository) Upsert(ctx context.Context, item gameserver.Server) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validate game server: %w", err)
	}

	query, args, err := qb.UpsertLiveModel("game_servers", gameServerInsertModel{
		Name:         item.Name,
		Address:      item.Address,
		RconPassword: item.Password,
	}, "name")
	if err != nil {
		return fmt.Errorf("build upsert game server query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert game server: %w", err)
	}
	return nil
}

func toServer(row gameServerTableModel) gameserver.Server {
	return gameserver.Server{
		Name:     row.Name,
		Address:  row.Address,
		Password: row.RconPassword,
	}
}
