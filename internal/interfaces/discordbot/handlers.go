package discordbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

func (b *Bot) sign(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := signCommand{Position: strings.ToUpper(opts.str("position")), Team: opts.integer("team"), Name: opts.str("name")}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}
	teamIndex := 0
	if cmd.Team > 0 {
		teamIndex = cmd.Team - 1
	}
	player := subject(i, cmd.Name)
	view, err := b.lineups.Sign(ctx, usecase.SignInput{
		Venue:     interactionVenue(i),
		TeamIndex: teamIndex,
		Position:  cmd.Position,
		Player:    player,
	})
	if err != nil {
		return reply{}, err
	}

	team := view.State.Teams[teamIndex].Name
	return reply{content: fmt.Sprintf("Signed **%s** to **%s** for %s.", player, cmd.Position, team), public: true}, nil
}

func (b *Bot) unsign(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := playerCommand{Name: opts.str("name")}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}
	player := subject(i, cmd.Name)
	outcome, err := b.lineups.Unsign(ctx, interactionVenue(i), player)
	if err != nil {
		return reply{}, err
	}

	content := fmt.Sprintf("**%s** left the bench.", player)
	if !outcome.Vacated.Substitute {
		content = fmt.Sprintf("**%s** left **%s**.", player, outcome.Vacated.Position)
	}
	if outcome.Promoted != nil {
		content += fmt.Sprintf(" **%s** moves up from the bench.", *outcome.Promoted)
	}
	return reply{content: content, public: true}, nil
}

func (b *Bot) sub(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := playerCommand{Name: opts.str("name")}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}
	player := subject(i, cmd.Name)
	outcome, err := b.lineups.ToggleSubstitute(ctx, interactionVenue(i), player)
	if err != nil {
		return reply{}, err
	}
	if outcome.Added {
		return reply{content: fmt.Sprintf("**%s** joined the bench.", player), public: true}, nil
	}
	return reply{content: fmt.Sprintf("**%s** left the bench.", player), public: true}, nil
}

func (b *Bot) ready(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	player := invoker(i)
	view, err := b.lineups.Ready(ctx, interactionVenue(i), player)
	if err != nil {
		return reply{}, err
	}
	content := fmt.Sprintf("**%s** is ready.", player)
	if view.Ready {
		content += " Teams are ready, run /start."
	}
	return reply{content: content, public: true}, nil
}

func (b *Bot) unready(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	player := invoker(i)
	if _, err := b.lineups.Unready(ctx, interactionVenue(i), player); err != nil {
		return reply{}, err
	}
	return reply{content: fmt.Sprintf("**%s** is no longer ready.", player), public: true}, nil
}

func (b *Bot) lineup(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	view, err := b.lineups.View(ctx, interactionVenue(i))
	if err != nil {
		return reply{}, err
	}
	return reply{content: RenderView(view), public: true}, nil
}

func (b *Bot) challenge(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := challengeCommand{Target: opts.str("target"), Opponent: opts.str("opponent")}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}

	input := usecase.IssueChallengeInput{Venue: interactionVenue(i)}
	switch cmd.Target {
	case targetBroadcast:
		input.Target = challenge.TargetBroadcast
	case targetTeam:
		opponent, err := b.resolveTeam(ctx, cmd.Opponent)
		if err != nil {
			return reply{}, err
		}
		input.Target = challenge.TargetDirectTeam
		input.TargetTeamID = opponent.ID
	case targetVenue:
		shared, err := b.resolveSharedVenue(cmd.Opponent)
		if err != nil {
			return reply{}, err
		}
		input.Target = challenge.TargetSharedVenue
		input.TargetVenue = shared.Key
	}

	item, err := b.challenges.Issue(ctx, input)
	if err != nil {
		return reply{}, err
	}
	if item.Status == challenge.StatusAccepted {
		return reply{
			content: fmt.Sprintf("**%s** now plays **%s** (%s). Challenge ID: `%s`", item.InitiatorTeamName, item.OpponentTeamName, item.Format.Label(), item.ID),
			public:  true,
		}, nil
	}
	return reply{
		content: fmt.Sprintf("Challenge sent to **%s** (%d channels). Challenge ID: `%s`", item.TargetName, len(item.BroadcastRefs), item.ID),
		public:  true,
	}, nil
}

func (b *Bot) unchallenge(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := unchallengeCommand{ID: opts.str("id")}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}
	outcome, err := b.challenges.Cancel(ctx, usecase.CancelChallengeInput{Venue: interactionVenue(i), ChallengeID: cmd.ID})
	if err != nil {
		return reply{}, err
	}
	if outcome.ByInitiator {
		return reply{content: fmt.Sprintf("Challenge `%s` cancelled.", outcome.Challenge.ID), public: true}, nil
	}
	return reply{content: fmt.Sprintf("Left challenge `%s` against **%s**.", outcome.Challenge.ID, outcome.Challenge.InitiatorTeamName), public: true}, nil
}

func (b *Bot) listChallenges(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	items, err := b.challenges.ListForVenue(ctx, interactionVenue(i))
	if err != nil {
		return reply{}, err
	}
	return reply{content: renderChallenges(items)}, nil
}

func (b *Bot) start(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	result, err := b.handoffs.Start(ctx, interactionVenue(i))
	if err != nil {
		return reply{}, err
	}
	assignment := result.Match.Assignment
	return reply{
		content: fmt.Sprintf("Match on **%s** (%s, %s) for %d players: %s",
			assignment.Server.Name, assignment.Map, assignment.Format.Label(), len(result.Participants), assignment.Server.ConnectURL()),
		public: true,
	}, nil
}

func (b *Bot) highlight(ctx context.Context, i *discordgo.Interaction, _ options) (reply, error) {
	missing, err := b.alerts.Highlight(ctx, interactionVenue(i))
	if err != nil {
		return reply{}, err
	}
	return reply{content: fmt.Sprintf("Highlighted %d open positions.", len(missing))}, nil
}

func (b *Bot) requestSub(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error) {
	cmd := requestSubCommand{Server: opts.str("server"), Position: strings.ToUpper(opts.str("position"))}
	if err := b.validate(ctx, cmd); err != nil {
		return reply{}, err
	}
	err := b.alerts.RequestSub(ctx, usecase.RequestSubInput{Venue: interactionVenue(i), ServerName: cmd.Server, Position: cmd.Position})
	if err != nil {
		return reply{}, err
	}
	return reply{content: fmt.Sprintf("Sub request for %s on %s posted.", cmd.Position, cmd.Server)}, nil
}

func (b *Bot) servers(ctx context.Context, _ *discordgo.Interaction, _ options) (reply, error) {
	statuses, err := b.alerts.ServerStatuses(ctx)
	if err != nil {
		return reply{}, err
	}
	return reply{content: renderStatuses(statuses), public: true}, nil
}
