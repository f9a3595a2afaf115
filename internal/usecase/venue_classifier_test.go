package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/memory"
)

func TestVenueClassifier_Resolve(t *testing.T) {
	t.Parallel()

	classifier := NewVenueClassifier(memory.NewTeamRepository(testTeams()), []venue.Venue{
		{Key: sharedVenueKey, Format: formation.FormatEights},
		{Key: venue.NewKey(sharedGuild, "bad"), Format: "11s"},
	})

	tests := []struct {
		name     string
		key      venue.Key
		wantRole venue.Role
		wantFmt  formation.Format
		wantName string
		wantErr  error
	}{
		{name: "shared", key: sharedVenueKey, wantRole: venue.RoleShared, wantFmt: formation.FormatEights, wantName: "Pickup 8v8"},
		{name: "team sixes", key: venue.NewKey(blueLockID, "200000000000000011"), wantRole: venue.RoleTeam, wantFmt: formation.FormatSixes, wantName: "Blue Lock"},
		{name: "team eights", key: redWolvesEights, wantRole: venue.RoleTeam, wantFmt: formation.FormatEights, wantName: "Red Wolves"},
		{name: "undeclared channel", key: venue.NewKey(blueLockID, "1"), wantErr: ErrNotAMatchmakingVenue},
		{name: "unregistered community", key: venue.NewKey("42", "1"), wantErr: ErrNotAMatchmakingVenue},
		{name: "invalid shared entry is ignored", key: venue.NewKey(sharedGuild, "bad"), wantErr: ErrNotAMatchmakingVenue},
		{name: "direct message", key: venue.NewKey("", "1"), wantErr: ErrNotAMatchmakingVenue},
	}
	for _, tc := range tests {
		got, err := classifier.Resolve(t.Context(), tc.key)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got.Role != tc.wantRole || got.Format != tc.wantFmt || got.Name != tc.wantName {
			t.Fatalf("%s: unexpected venue %+v", tc.name, got)
		}
	}

	if shared := classifier.SharedVenues(); len(shared) != 1 {
		t.Fatalf("expected one valid shared venue, got %d", len(shared))
	}
}

func TestTeamVenues(t *testing.T) {
	t.Parallel()

	venues := TeamVenues(testTeams()[0])
	if len(venues) != 2 {
		t.Fatalf("expected two venues, got %d", len(venues))
	}
	if venues[0].Format != formation.FormatSixes || venues[1].Key != blueLockEights {
		t.Fatalf("unexpected venues: %+v", venues)
	}
}
