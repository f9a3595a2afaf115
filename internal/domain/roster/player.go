package roster

import (
	"strings"
	"time"
)

type PlayerKind string

const (
	PlayerIdentified PlayerKind = "identified"
	PlayerFreeform   PlayerKind = "freeform"
)

// PlayerRef is either a platform member with a stable id or a freeform name typed by someone else.
type PlayerRef struct {
	Kind        PlayerKind
	ID          string
	DisplayName string
}

func Identified(id, displayName string) PlayerRef {
	return PlayerRef{
		Kind:        PlayerIdentified,
		ID:          strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(displayName),
	}
}

func Freeform(displayName string) PlayerRef {
	return PlayerRef{
		Kind:        PlayerFreeform,
		DisplayName: strings.TrimSpace(displayName),
	}
}

func (p PlayerRef) IsIdentified() bool {
	return p.Kind == PlayerIdentified
}

func (p PlayerRef) IsZero() bool {
	return p.ID == "" && p.DisplayName == ""
}

// Equal compares identified players by id and freeform players by name, ignoring case.
// An identified player never equals a freeform one.
func (p PlayerRef) Equal(other PlayerRef) bool {
	if p.Kind != other.Kind {
		return false
	}
	if p.Kind == PlayerIdentified {
		return p.ID == other.ID
	}
	return strings.EqualFold(p.DisplayName, other.DisplayName)
}

// IdentityKey is stable for equal refs and is used for de-duplication.
func (p PlayerRef) IdentityKey() string {
	if p.Kind == PlayerIdentified {
		return "id:" + p.ID
	}
	return "name:" + strings.ToLower(p.DisplayName)
}

func (p PlayerRef) String() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

type SignedPlayer struct {
	Player   PlayerRef
	SignedAt time.Time
}

func indexOfPlayer(list []PlayerRef, player PlayerRef) int {
	for i, candidate := range list {
		if candidate.Equal(player) {
			return i
		}
	}
	return -1
}

func removePlayer(list []PlayerRef, player PlayerRef) ([]PlayerRef, bool) {
	idx := indexOfPlayer(list, player)
	if idx < 0 {
		return list, false
	}
	out := make([]PlayerRef, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, true
}
