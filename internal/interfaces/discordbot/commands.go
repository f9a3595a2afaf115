package discordbot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	cmdSign        = "sign"
	cmdUnsign      = "unsign"
	cmdSub         = "sub"
	cmdReady       = "ready"
	cmdUnready     = "unready"
	cmdLineup      = "lineup"
	cmdChallenge   = "challenge"
	cmdUnchallenge = "unchallenge"
	cmdChallenges  = "challenges"
	cmdStart       = "start"
	cmdHighlight   = "highlight"
	cmdRequestSub  = "request_sub"
	cmdServers     = "servers"
)

const (
	targetBroadcast = "broadcast"
	targetTeam      = "team"
	targetVenue     = "channel"
)

func positionChoices() []*discordgo.ApplicationCommandOptionChoice {
	names := []string{"GK", "LB", "CB", "RB", "CM", "LW", "CF", "RW"}
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for _, name := range names {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
	}
	return out
}

func playerNameOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Act for someone who is not on Discord",
		MaxLength:   32,
	}
}

// Commands is the slash command set registered for every community.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdSign,
			Description: "Sign a position in this channel's lineup",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "position",
					Description: "Position to sign",
					Required:    true,
					Choices:     positionChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "team",
					Description: "Lineup to join in a shared channel",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Team 1", Value: 1},
						{Name: "Team 2", Value: 2},
					},
				},
				playerNameOption(),
			},
		},
		{Name: cmdUnsign, Description: "Leave this channel's lineup", Options: []*discordgo.ApplicationCommandOption{playerNameOption()}},
		{Name: cmdSub, Description: "Join or leave the substitute bench", Options: []*discordgo.ApplicationCommandOption{playerNameOption()}},
		{Name: cmdReady, Description: "Mark yourself ready"},
		{Name: cmdUnready, Description: "Withdraw your ready mark"},
		{Name: cmdLineup, Description: "Show the current lineup"},
		{
			Name:        cmdChallenge,
			Description: "Challenge another team",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "Who to challenge",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "All teams", Value: targetBroadcast},
						{Name: "A specific team", Value: targetTeam},
						{Name: "A pickup channel", Value: targetVenue},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "opponent",
					Description: "Team or pickup channel name",
					MaxLength:   100,
				},
			},
		},
		{
			Name:        cmdUnchallenge,
			Description: "Cancel or leave a challenge",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "Challenge ID, defaults to the active one",
				},
			},
		},
		{Name: cmdChallenges, Description: "List challenges involving this channel"},
		{Name: cmdStart, Description: "Start the match once both sides are ready"},
		{Name: cmdHighlight, Description: "Ping the channel about open positions"},
		{
			Name:        cmdRequestSub,
			Description: "Ask for a substitute on a running server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "server",
					Description: "Server name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "position",
					Description: "Position that needs covering",
					Required:    true,
					Choices:     positionChoices(),
				},
			},
		},
		{Name: cmdServers, Description: "Show game server status"},
	}
}

// RegisterCommands overwrites the command set globally, or per community when ids are given.
func RegisterCommands(session Session, appID string, guildIDs []string) error {
	commands := Commands()
	if len(guildIDs) == 0 {
		guildIDs = []string{""}
	}
	for _, guildID := range guildIDs {
		if _, err := session.ApplicationCommandBulkOverwrite(appID, guildID, commands); err != nil {
			return fmt.Errorf("register commands for guild %q: %w", guildID, err)
		}
	}
	return nil
}
