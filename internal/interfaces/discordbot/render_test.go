package discordbot

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

func teamVenue() venue.Venue {
	return venue.Venue{
		Key:          venue.NewKey("100000000000000001", "200000000000000012"),
		Format:       formation.FormatEights,
		Role:         venue.RoleTeam,
		OwningTeamID: "100000000000000001",
		Name:         "Blue Lock",
	}
}

func TestRenderLineup_ShowsSlotsReadyMarksAndVerdict(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	state := roster.NewState(teamVenue(), now)
	alice := roster.Identified("1", "Alice")
	if err := state.Sign(0, formation.PositionGK, alice, now); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := state.MarkReady(alice, now); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := state.ToggleSubstitute(roster.Freeform("Bob"), now); err != nil {
		t.Fatalf("sub: %v", err)
	}

	out := RenderLineup(state)
	for _, want := range []string{"**Blue Lock** 8v8 lineup", "`GK` Alice ✓", "`CF` -", "Subs: Bob", "Blue Lock is not full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in lineup:\n%s", want, out)
		}
	}
}

func TestRenderLineup_ChallengeFlagsRenderFirstLineupOnly(t *testing.T) {
	now := time.Now()
	shared := venue.Venue{Key: venue.NewKey("900", "901"), Format: formation.FormatSixes, Role: venue.RoleShared, Name: "Pickup 6v6"}
	state := roster.NewState(shared, now)
	state.InjectChallengeFlags(roster.ChallengeFlags{ChallengerName: "Red Wolves", Format: formation.FormatSixes}, now)

	out := RenderLineup(state)
	if !strings.Contains(out, "Challenged by **Red Wolves**") {
		t.Fatalf("expected challenger line, got:\n%s", out)
	}
	if strings.Contains(out, "__Team 2__") {
		t.Fatalf("second lineup must be hidden while challenged:\n%s", out)
	}
}

func TestOfferCustomID_RoundTrip(t *testing.T) {
	postedAt := time.Unix(1767225600, 0)
	item := challenge.Challenge{ID: "blue-lock:ab12", InitiatorTeamName: "Blue Lock", Format: formation.FormatEights}

	msg := OfferMessage(item, postedAt)
	row, ok := msg.Components[0].(discordgo.ActionsRow)
	if !ok || len(row.Components) != 2 {
		t.Fatalf("expected one row with two buttons, got %#v", msg.Components)
	}
	accept := row.Components[0].(discordgo.Button)
	if accept.Label != "Accept Challenge" {
		t.Fatalf("unexpected accept label %q", accept.Label)
	}

	parsed, ok := parseOfferCustomID(accept.CustomID)
	if !ok {
		t.Fatalf("custom id %q did not parse", accept.CustomID)
	}
	if parsed.Action != actionAccept || parsed.ChallengeID != item.ID || !parsed.PostedAt.Equal(postedAt) {
		t.Fatalf("unexpected parse result %#v", parsed)
	}
}

func TestParseOfferCustomID_Rejects(t *testing.T) {
	cases := []string{
		"",
		"other:accept:x:1",
		"challenge:join:x:1",
		"challenge:accept:x",
		"challenge:accept::1",
		"challenge:accept:x:soon",
	}
	for _, raw := range cases {
		if _, ok := parseOfferCustomID(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestRenderStatuses(t *testing.T) {
	if got := renderStatuses(nil); got != "No game servers are registered." {
		t.Fatalf("unexpected empty rendering %q", got)
	}

	out := renderStatuses([]gameserver.Status{
		{Server: gameserver.Server{Name: "NA East #1", Address: "127.0.0.1:27015"}, Online: true, Hostname: "IOS NA", Players: 3, MaxPlayers: 16},
		{Server: gameserver.Server{Name: "NA West #1", Address: "127.0.0.1:27016"}},
	})
	if !strings.Contains(out, "**NA East #1**: IOS NA, 3/16 players, https://iosoccer.com/connect/#127.0.0.1:27015") {
		t.Fatalf("unexpected online line:\n%s", out)
	}
	if !strings.Contains(out, "**NA West #1**: offline") {
		t.Fatalf("unexpected offline line:\n%s", out)
	}
}

func TestRenderChallenges_FallsBackToTargetName(t *testing.T) {
	out := renderChallenges([]challenge.Challenge{{
		ID:                "blue-lock:ab12",
		InitiatorTeamName: "Blue Lock",
		TargetName:        "all teams",
		Format:            formation.FormatEights,
		Status:            challenge.StatusPendingBroadcast,
	}})
	want := "`blue-lock:ab12` Blue Lock vs all teams, 8v8 (pending broadcast)"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}
