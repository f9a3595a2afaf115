package discordbot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

const (
	offerPrefix   = "challenge:"
	actionAccept  = "accept"
	actionDecline = "decline"
	openSlot      = "-"
)

// RenderLineup draws every lineup of the venue on its pitch grid, attack first,
// followed by the venue's own readiness verdict.
func RenderLineup(state roster.State) string {
	body := renderLineupBody(state)
	ok, verdict := roster.CheckReady(state.Format(), readinessLineups(state)...)
	return body + "\n\n" + verdictLine(ok, verdict)
}

func verdictLine(ok bool, verdict string) string {
	if ok {
		return "Ready to start."
	}
	return verdict
}

func renderLineupBody(state roster.State) string {
	var sb strings.Builder
	format := state.Format()

	title := state.Venue.Name
	if title == "" {
		title = "Pickup"
	}
	fmt.Fprintf(&sb, "**%s** %s lineup\n", title, format.Label())
	if flags := state.ChallengeFlags; flags != nil {
		fmt.Fprintf(&sb, "Challenged by **%s**\n", flags.ChallengerName)
	} else if state.Linked() {
		fmt.Fprintf(&sb, "Playing against `%s`\n", state.LinkedVenue)
	}

	for idx, team := range state.Teams {
		if idx == 1 && state.ChallengeFlags != nil {
			break
		}
		sb.WriteString("\n")
		if len(state.Teams) > 1 {
			fmt.Fprintf(&sb, "__%s__\n", team.Name)
		}
		for _, row := range format.Grid() {
			cells := make([]string, 0, len(row))
			for _, pos := range row {
				name := openSlot
				if signed, ok := team.Player(pos); ok {
					name = signed.Player.String()
					if state.IsReady(signed.Player) {
						name += " ✓"
					}
				}
				cells = append(cells, fmt.Sprintf("`%s` %s", pos, name))
			}
			sb.WriteString(strings.Join(cells, "   "))
			sb.WriteString("\n")
		}
	}

	if len(state.Substitutes) > 0 {
		sb.WriteString("\nSubs: ")
		sb.WriteString(joinPlayers(state.Substitutes))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func readinessLineups(state roster.State) []roster.TeamLineup {
	if state.ChallengeFlags != nil && len(state.Teams) > 0 {
		return state.Teams[:1]
	}
	return state.Teams
}

// RenderView renders a lineup snapshot with the verdict computed by the lineup service.
func RenderView(view usecase.LineupView) string {
	body := renderLineupBody(view.State)
	if view.Counterpart != nil {
		body += "\n\n" + renderLineupBody(*view.Counterpart)
	}
	if view.Challenge != nil {
		body += fmt.Sprintf("\n\nChallenge `%s` (%s)", view.Challenge.ID, statusLabel(view.Challenge.Status))
	}
	return body + "\n\n" + verdictLine(view.Ready, view.Verdict)
}

func joinPlayers(players []roster.PlayerRef) string {
	names := make([]string, 0, len(players))
	for _, player := range players {
		names = append(names, player.String())
	}
	return strings.Join(names, ", ")
}

func statusLabel(status challenge.Status) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// OfferMessage is the interactive artifact posted into a recipient venue.
func OfferMessage(item challenge.Challenge, postedAt time.Time) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("**%s** challenges you to a **%s** match.\nChallenge ID: `%s`",
			item.InitiatorTeamName, item.Format.Label(), item.ID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Accept Challenge",
						Style:    discordgo.SuccessButton,
						CustomID: offerCustomID(actionAccept, item.ID, postedAt),
					},
					discordgo.Button{
						Label:    "Decline",
						Style:    discordgo.SecondaryButton,
						CustomID: offerCustomID(actionDecline, item.ID, postedAt),
					},
				},
			},
		},
	}
}

func offerCustomID(action, challengeID string, postedAt time.Time) string {
	return offerPrefix + action + ":" + challengeID + ":" + strconv.FormatInt(postedAt.Unix(), 10)
}

type offerAction struct {
	Action      string
	ChallengeID string
	PostedAt    time.Time
}

func parseOfferCustomID(customID string) (offerAction, bool) {
	rest, ok := strings.CutPrefix(customID, offerPrefix)
	if !ok {
		return offerAction{}, false
	}
	action, rest, ok := strings.Cut(rest, ":")
	if !ok || (action != actionAccept && action != actionDecline) {
		return offerAction{}, false
	}
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return offerAction{}, false
	}
	unix, err := strconv.ParseInt(rest[sep+1:], 10, 64)
	if err != nil {
		return offerAction{}, false
	}
	return offerAction{Action: action, ChallengeID: rest[:sep], PostedAt: time.Unix(unix, 0)}, true
}

func renderStatuses(statuses []gameserver.Status) string {
	if len(statuses) == 0 {
		return "No game servers are registered."
	}
	var sb strings.Builder
	for _, status := range statuses {
		if !status.Online {
			fmt.Fprintf(&sb, "**%s**: offline\n", status.Server.Name)
			continue
		}
		fmt.Fprintf(&sb, "**%s**: %s, %d/%d players, %s\n",
			status.Server.Name, status.Hostname, status.Players, status.MaxPlayers, status.Server.ConnectURL())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderChallenges(items []challenge.Challenge) string {
	if len(items) == 0 {
		return "No challenges involve this channel."
	}
	var sb strings.Builder
	for _, item := range items {
		opponent := item.OpponentTeamName
		if opponent == "" {
			opponent = item.TargetName
		}
		fmt.Fprintf(&sb, "`%s` %s vs %s, %s (%s)\n", item.ID, item.InitiatorTeamName, opponent, item.Format.Label(), statusLabel(item.Status))
	}
	return strings.TrimRight(sb.String(), "\n")
}
