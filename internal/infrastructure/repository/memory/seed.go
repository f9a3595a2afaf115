package memory

import (
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
)

// SeedTeams is the registry used when no database is configured.
func SeedTeams() []team.Team {
	return []team.Team{
		{ID: "100000000000000001", Name: "Blue Lock", SixesChannels: []string{"200000000000000011"}, EightsChannels: []string{"200000000000000012"}},
		{ID: "100000000000000002", Name: "Red Wolves", EightsChannels: []string{"200000000000000022"}},
		{ID: "100000000000000003", Name: "North Star", SixesChannels: []string{"200000000000000031"}, EightsChannels: []string{"200000000000000032"}},
	}
}

func SeedServers() []gameserver.Server {
	return []gameserver.Server{
		{Name: "NA East #1", Address: "127.0.0.1:27015"},
		{Name: "NA West #1", Address: "127.0.0.1:27016"},
	}
}
