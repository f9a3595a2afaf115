package discordbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

type signCommand struct {
	Position string `validate:"required,oneof=GK LB CB RB CM LW CF RW"`
	// Team is one-based; zero means the first lineup.
	Team int    `validate:"gte=0,lte=2"`
	Name string `validate:"omitempty,max=32"`
}

type playerCommand struct {
	Name string `validate:"omitempty,max=32"`
}

type challengeCommand struct {
	Target   string `validate:"required,oneof=broadcast team channel"`
	Opponent string `validate:"required_unless=Target broadcast,max=100"`
}

type unchallengeCommand struct {
	ID string `validate:"omitempty,max=100"`
}

type requestSubCommand struct {
	Server   string `validate:"required,max=100"`
	Position string `validate:"required,oneof=GK LB CB RB CM LW CF RW"`
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func commandOptions(data discordgo.ApplicationCommandInteractionData) options {
	out := make(options, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func (o options) str(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return strings.TrimSpace(opt.StringValue())
}

func (o options) integer(name string) int {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0
	}
	return int(opt.IntValue())
}

func (b *Bot) validate(ctx context.Context, payload any) error {
	if err := b.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func interactionVenue(i *discordgo.Interaction) venue.Key {
	return venue.NewKey(i.GuildID, i.ChannelID)
}

// invoker is the member who ran the command.
func invoker(i *discordgo.Interaction) roster.PlayerRef {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return roster.Identified(i.Member.User.ID, i.Member.DisplayName())
	case i.User != nil:
		return roster.Identified(i.User.ID, i.User.DisplayName())
	default:
		return roster.PlayerRef{}
	}
}

// subject is the player a lineup command acts on: a freeform name when given, else the invoker.
func subject(i *discordgo.Interaction, name string) roster.PlayerRef {
	if name = strings.TrimSpace(name); name != "" {
		return roster.Freeform(name)
	}
	return invoker(i)
}
