package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	qb "github.com/riskibarqy/pickup-matchmaking/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(
			qb.Eq("community_id", strings.TrimSpace(teamID)),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team: %w", err)
	}

	venues, err := r.listVenues(ctx, qb.Eq("team_community_id", row.CommunityID))
	if err != nil {
		return team.Team{}, false, err
	}
	return assembleTeams([]teamTableModel{row}, venues)[0], true, nil
}

// ListWithVenues returns teams that declared at least one lineup channel.
func (r *TeamRepository) ListWithVenues(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(
			qb.IsNull("deleted_at"),
			qb.Expr("EXISTS (SELECT 1 FROM team_venues v WHERE v.team_community_id = teams.community_id AND v.deleted_at IS NULL)"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CommunityID)
	}
	venues, err := r.listVenues(ctx, qb.In("team_community_id", ids))
	if err != nil {
		return nil, err
	}
	return assembleTeams(rows, venues), nil
}

// Upsert replaces the team's name and its full set of lineup channels.
func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validate team: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for team upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.UpsertLiveModel("teams", teamInsertModel{CommunityID: item.ID, Name: item.Name}, "community_id")
	if err != nil {
		return fmt.Errorf("build upsert team query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}

	clearQuery, clearArgs, err := qb.Update("team_venues").
		SetExpr("deleted_at", "NOW()").
		Where(qb.Eq("team_community_id", item.ID), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear team venues query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("soft delete existing team venues: %w", err)
	}

	if rows := venueRows(item); len(rows) > 0 {
		insert := qb.InsertInto("team_venues").Columns("team_community_id", "channel_id", "format")
		for _, row := range rows {
			insert = insert.Values(row.TeamCommunityID, row.ChannelID, row.Format)
		}
		insertQuery, insertArgs, err := insert.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert team venues query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return fmt.Errorf("insert team venues: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit team upsert: %w", err)
	}
	return nil
}

func (r *TeamRepository) listVenues(ctx context.Context, filter qb.Condition) ([]teamVenueTableModel, error) {
	query, args, err := qb.Select("*").From("team_venues").
		Where(filter, qb.IsNull("deleted_at")).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team venues query: %w", err)
	}

	var rows []teamVenueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team venues: %w", err)
	}
	return rows, nil
}
