package gameserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
)

const connectBaseURL = "https://iosoccer.com/connect/#"

// Server is a registered game server reachable over RCON.
type Server struct {
	Name     string
	Address  string
	Password string
}

func (s Server) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("server name is required")
	}
	host, port, ok := strings.Cut(strings.TrimSpace(s.Address), ":")
	if !ok || host == "" || port == "" {
		return fmt.Errorf("server %s address must be host:port", s.Name)
	}
	return nil
}

func (s Server) ConnectURL() string {
	return connectBaseURL + s.Address
}

type Status struct {
	Server     Server
	Hostname   string
	Players    int
	MaxPlayers int
	Online     bool
}

// Assignment is the outcome of server selection for one match.
type Assignment struct {
	Server Server
	Map    string
	Format formation.Format
}

// ConfigName is the server-side config executed after the map change.
func (a Assignment) ConfigName() string {
	return a.Format.Label()
}

// Match is what gets announced once a handoff completes.
type Match struct {
	ChallengeID string
	HomeName    string
	AwayName    string
	Assignment  Assignment
	StartedAt   time.Time
}

var mapPools = map[formation.Format][]string{
	formation.FormatSixes:  {"6v6_peacock_park", "6v6_south"},
	formation.FormatEights: {"8v8_london", "8v8_coral"},
}

func MapPool(f formation.Format) []string {
	return append([]string(nil), mapPools[f]...)
}
