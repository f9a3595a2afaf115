package id

import (
	"strings"
	"testing"
	"time"
)

type fixedGenerator string

func (g fixedGenerator) NewID() (string, error) { return string(g), nil }

func TestChallengeID(t *testing.T) {
	at := time.Unix(1760000000, 0)

	got, err := ChallengeID(fixedGenerator("ab12"), "  Real Pickup F.C. ", at)
	if err != nil {
		t.Fatalf("challenge id: %v", err)
	}
	if got != "challenge_real-pickup-f-c_1760000000_ab12" {
		t.Fatalf("unexpected id: %s", got)
	}

	got, err = ChallengeID(fixedGenerator("x"), "★★★", at)
	if err != nil {
		t.Fatalf("challenge id: %v", err)
	}
	if !strings.HasPrefix(got, "challenge_team_") {
		t.Fatalf("expected fallback slug, got %s", got)
	}
}

func TestRandomGenerator_NewID(t *testing.T) {
	gen := NewRandomGenerator()
	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	second, _ := gen.NewID()
	if len(first) != 12 || first == second {
		t.Fatalf("unexpected ids: %q %q", first, second)
	}
}
