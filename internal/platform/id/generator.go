package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

type RandomGenerator struct {
	size int
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{size: 6}
}

func (g *RandomGenerator) NewID() (string, error) {
	size := g.size
	if size <= 0 {
		size = 6
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// ChallengeID builds "challenge_<team-slug>_<unix>_<suffix>". Chat adapters embed it in button ids, so it stays ASCII.
func ChallengeID(gen Generator, teamName string, at time.Time) (string, error) {
	suffix, err := gen.NewID()
	if err != nil {
		return "", err
	}
	return "challenge_" + slug(teamName) + "_" + strconv.FormatInt(at.Unix(), 10) + "_" + suffix, nil
}

func slug(raw string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 24 {
		out = strings.TrimRight(out[:24], "-")
	}
	if out == "" {
		return "team"
	}
	return out
}
