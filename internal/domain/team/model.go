package team

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
)

// Team is a registered pickup team. ID is the team's own community id.
type Team struct {
	ID             string
	Name           string
	SixesChannels  []string
	EightsChannels []string
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	seen := make(map[string]struct{}, len(t.SixesChannels)+len(t.EightsChannels))
	for _, channelID := range append(append([]string(nil), t.SixesChannels...), t.EightsChannels...) {
		if strings.TrimSpace(channelID) == "" {
			return fmt.Errorf("team %s has an empty channel id", t.ID)
		}
		if _, ok := seen[channelID]; ok {
			return fmt.Errorf("channel %s is declared twice for team %s", channelID, t.ID)
		}
		seen[channelID] = struct{}{}
	}

	return nil
}

// Channels returns the declared venues for the format.
func (t Team) Channels(f formation.Format) []string {
	switch f {
	case formation.FormatSixes:
		return append([]string(nil), t.SixesChannels...)
	case formation.FormatEights:
		return append([]string(nil), t.EightsChannels...)
	default:
		return nil
	}
}

func (t Team) FormatOf(channelID string) (formation.Format, bool) {
	for _, f := range formation.All() {
		for _, candidate := range t.Channels(f) {
			if candidate == channelID {
				return f, true
			}
		}
	}
	return "", false
}

func (t Team) HasVenues() bool {
	return len(t.SixesChannels)+len(t.EightsChannels) > 0
}
