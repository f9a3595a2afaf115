package formation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFormat   = errors.New("unknown format")
	ErrUnknownPosition = errors.New("unknown position")
)

// Format is a pickup ruleset with a fixed position set.
type Format string

const (
	FormatSixes  Format = "6s"
	FormatEights Format = "8s"
)

type Position string

const (
	PositionGK Position = "GK"
	PositionLB Position = "LB"
	PositionCB Position = "CB"
	PositionRB Position = "RB"
	PositionCM Position = "CM"
	PositionLW Position = "LW"
	PositionCF Position = "CF"
	PositionRW Position = "RW"
)

var positionsByFormat = map[Format][]Position{
	FormatSixes:  {PositionGK, PositionLB, PositionRB, PositionCM, PositionLW, PositionRW},
	FormatEights: {PositionGK, PositionLB, PositionCB, PositionRB, PositionCM, PositionLW, PositionCF, PositionRW},
}

// gridByFormat is the pitch layout used when rendering a lineup, attack first.
var gridByFormat = map[Format][][]Position{
	FormatSixes: {
		{PositionLW, PositionRW},
		{PositionCM},
		{PositionLB, PositionRB},
		{PositionGK},
	},
	FormatEights: {
		{PositionLW, PositionCF, PositionRW},
		{PositionCM},
		{PositionLB, PositionCB, PositionRB},
		{PositionGK},
	},
}

func All() []Format {
	return []Format{FormatSixes, FormatEights}
}

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "6", "6s", "6v6", "sixes":
		return FormatSixes, nil
	case "8", "8s", "8v8", "eights":
		return FormatEights, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

func (f Format) Valid() bool {
	_, ok := positionsByFormat[f]
	return ok
}

// Positions returns the format's positions in canonical order, GK first.
func (f Format) Positions() []Position {
	return append([]Position(nil), positionsByFormat[f]...)
}

func (f Format) FieldPositions() []Position {
	out := make([]Position, 0, len(positionsByFormat[f]))
	for _, pos := range positionsByFormat[f] {
		if pos == PositionGK {
			continue
		}
		out = append(out, pos)
	}
	return out
}

func (f Format) Size() int {
	return len(positionsByFormat[f])
}

func (f Format) Has(pos Position) bool {
	for _, candidate := range positionsByFormat[f] {
		if candidate == pos {
			return true
		}
	}
	return false
}

func (f Format) Grid() [][]Position {
	rows := gridByFormat[f]
	out := make([][]Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, append([]Position(nil), row...))
	}
	return out
}

// Label renders the format the way game servers name their configs, e.g. "8v8".
func (f Format) Label() string {
	switch f {
	case FormatSixes:
		return "6v6"
	case FormatEights:
		return "8v8"
	default:
		return string(f)
	}
}

func ParsePosition(f Format, raw string) (Position, error) {
	pos := Position(strings.ToUpper(strings.TrimSpace(raw)))
	if !f.Has(pos) {
		return "", fmt.Errorf("%w: %q is not a %s position", ErrUnknownPosition, raw, f)
	}
	return pos, nil
}
