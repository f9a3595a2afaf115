package venue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
)

var ErrInvalidKey = errors.New("invalid venue key")

type Role string

const (
	RoleUnaffiliated Role = "unaffiliated"
	RoleShared       Role = "shared"
	RoleTeam         Role = "team"
)

// Key addresses one channel inside one community.
type Key struct {
	CommunityID string
	ChannelID   string
}

func NewKey(communityID, channelID string) Key {
	return Key{
		CommunityID: strings.TrimSpace(communityID),
		ChannelID:   strings.TrimSpace(channelID),
	}
}

// ParseKey reads the "community/channel" form produced by String.
func ParseKey(raw string) (Key, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "/", 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	key := NewKey(parts[0], parts[1])
	if key.CommunityID == "" || key.ChannelID == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	return key, nil
}

func (k Key) String() string {
	return k.CommunityID + "/" + k.ChannelID
}

func (k Key) IsZero() bool {
	return k.CommunityID == "" && k.ChannelID == ""
}

// Venue is a resolved matchmaking surface.
type Venue struct {
	Key    Key
	Format formation.Format
	Role   Role
	// OwningTeamID is the owning team's community id for team venues.
	OwningTeamID string
	Name         string
}

func (v Venue) IsShared() bool {
	return v.Role == RoleShared
}

func (v Venue) IsTeam() bool {
	return v.Role == RoleTeam
}

// TeamCount is the number of lineups the venue hosts.
func (v Venue) TeamCount() int {
	if v.Role == RoleShared {
		return 2
	}
	return 1
}
