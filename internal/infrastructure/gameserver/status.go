package gameserver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
)

const defaultMaxPlayers = 16

var (
	hostnamePattern   = regexp.MustCompile(`hostname:\s*(.+)`)
	playersPattern    = regexp.MustCompile(`players\s*:\s*(\d+)\s+humans`)
	maxPlayersPattern = regexp.MustCompile(`players\s*:\s*\d+\s+humans,\s*\d+\s+bots,\s*(\d+)\s+max`)
)

// ParseStatus reads the reply to the "status" console command.
func ParseStatus(server gameserver.Server, response string) gameserver.Status {
	status := gameserver.Status{
		Server:     server,
		Hostname:   server.Address,
		MaxPlayers: defaultMaxPlayers,
		Online:     true,
	}
	if match := hostnamePattern.FindStringSubmatch(response); match != nil {
		status.Hostname = strings.TrimSpace(match[1])
	}
	if match := playersPattern.FindStringSubmatch(response); match != nil {
		status.Players, _ = strconv.Atoi(match[1])
	}
	if match := maxPlayersPattern.FindStringSubmatch(response); match != nil {
		status.MaxPlayers, _ = strconv.Atoi(match[1])
	}
	return status
}

func offline(server gameserver.Server) gameserver.Status {
	return gameserver.Status{Server: server, Hostname: server.Address}
}
