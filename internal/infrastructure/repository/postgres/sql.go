package postgres

import (
	"database/sql"
	"errors"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// assembleTeams joins team rows with their venue rows, keeping team order.
// Venue rows with an unknown format are skipped.
func assembleTeams(teams []teamTableModel, venues []teamVenueTableModel) []team.Team {
	byTeam := make(map[string]*team.Team, len(teams))
	out := make([]team.Team, 0, len(teams))
	for _, row := range teams {
		out = append(out, team.Team{ID: row.CommunityID, Name: row.Name})
	}
	for i := range out {
		byTeam[out[i].ID] = &out[i]
	}

	for _, row := range venues {
		item, ok := byTeam[row.TeamCommunityID]
		if !ok {
			continue
		}
		switch formation.Format(row.Format) {
		case formation.FormatSixes:
			item.SixesChannels = append(item.SixesChannels, row.ChannelID)
		case formation.FormatEights:
			item.EightsChannels = append(item.EightsChannels, row.ChannelID)
		}
	}
	return out
}

func venueRows(item team.Team) []teamVenueTableModel {
	var rows []teamVenueTableModel
	for _, f := range formation.All() {
		for _, channelID := range item.Channels(f) {
			rows = append(rows, teamVenueTableModel{
				TeamCommunityID: item.ID,
				ChannelID:       channelID,
				Format:          string(f),
			})
		}
	}
	return rows
}
