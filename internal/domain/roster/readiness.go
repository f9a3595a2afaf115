package roster

import (
	"fmt"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
)

const readyMessage = "teams are ready to proceed"

// CheckReady applies the fullness rule per lineup and the goalkeeper rule across all of them:
// every lineup fills its field positions, and at least one lineup in the set fields a GK.
func CheckReady(format formation.Format, teams ...TeamLineup) (bool, string) {
	if !format.Valid() {
		return false, fmt.Sprintf("unknown format %q", format)
	}
	if len(teams) == 0 {
		return false, "no lineups to evaluate"
	}

	goalkeepers := 0
	for idx, team := range teams {
		for _, pos := range format.FieldPositions() {
			if !team.Filled(pos) {
				return false, fmt.Sprintf("%s is not full, missing field players (e.g. %s)", lineupName(team, idx), pos)
			}
		}
		if team.Filled(formation.PositionGK) {
			goalkeepers++
		}
	}

	if goalkeepers == 0 {
		if len(teams) == 1 {
			return false, fmt.Sprintf("%s needs a goalkeeper (GK)", lineupName(teams[0], 0))
		}
		return false, "at least one goalkeeper (GK) is required between the teams to start the match"
	}

	return true, readyMessage
}

func lineupName(team TeamLineup, idx int) string {
	if team.Name != "" {
		return team.Name
	}
	return fmt.Sprintf("Team %d", idx+1)
}
