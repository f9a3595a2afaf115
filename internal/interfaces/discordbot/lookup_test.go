package discordbot

import (
	"errors"
	"testing"

	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

func TestBestMatch(t *testing.T) {
	names := []string{"Blue Lock", "Red Wolves", "North Star"}

	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{name: "exact ignoring case", query: "red wolves", want: 1},
		{name: "fuzzy subsequence", query: "wolves", want: 1},
		{name: "fuzzy abbreviation", query: "nstar", want: 2},
		{name: "no match", query: "zebra", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bestMatch(tc.query, names)
			if tc.wantErr {
				if !errors.Is(err, usecase.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected index %d, got %d", tc.want, got)
			}
		})
	}
}

func TestBestMatch_TieIsAmbiguous(t *testing.T) {
	_, err := bestMatch("team", []string{"Team A", "Team B"})
	if !errors.Is(err, usecase.ErrValidation) {
		t.Fatalf("expected validation error for ambiguous query, got %v", err)
	}
}
