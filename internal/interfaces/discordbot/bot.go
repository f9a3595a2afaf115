package discordbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

const defaultAcceptTTL = time.Hour

// Services are the use cases the bot drives.
type Services struct {
	Lineups    *usecase.LineupService
	Challenges *usecase.ChallengeService
	Handoffs   *usecase.HandoffService
	Alerts     *usecase.AlertService
	Classifier *usecase.VenueClassifier
	Teams      team.Repository
}

type Config struct {
	// AcceptTTL is how long offer buttons stay usable after posting.
	AcceptTTL time.Duration
	Logger    *logging.Logger
}

type Bot struct {
	session    Session
	lineups    *usecase.LineupService
	challenges *usecase.ChallengeService
	handoffs   *usecase.HandoffService
	alerts     *usecase.AlertService
	classifier *usecase.VenueClassifier
	teams      team.Repository
	validator  *validator.Validate
	acceptTTL  time.Duration
	logger     *logging.Logger
	now        func() time.Time
}

func New(session Session, services Services, cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.AcceptTTL
	if ttl <= 0 {
		ttl = defaultAcceptTTL
	}
	return &Bot{
		session:    session,
		lineups:    services.Lineups,
		challenges: services.Challenges,
		handoffs:   services.Handoffs,
		alerts:     services.Alerts,
		classifier: services.Classifier,
		teams:      services.Teams,
		validator:  validator.New(),
		acceptTTL:  ttl,
		logger:     logger.Named("discordbot"),
		now:        time.Now,
	}
}

// Run connects the gateway, registers commands and serves interactions until ctx ends.
func (b *Bot) Run(ctx context.Context, gateway *discordgo.Session, appID string, guildIDs []string) error {
	remove := gateway.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, ev.Interaction)
	})
	defer remove()

	if err := gateway.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			b.logger.Warn("close discord gateway failed", "error", err)
		}
	}()

	if appID == "" && gateway.State != nil && gateway.State.User != nil {
		appID = gateway.State.User.ID
	}
	if appID == "" {
		return errors.New("discord application id is unknown, set DISCORD_APP_ID")
	}
	if err := RegisterCommands(b.session, appID, guildIDs); err != nil {
		return err
	}
	b.logger.Info("discord bot connected", "app_id", appID, "guilds", len(guildIDs))

	<-ctx.Done()
	return nil
}

// HandleInteraction routes one gateway interaction. It never panics on unknown input.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	}
}

type reply struct {
	content string
	public  bool
}

type commandHandler func(ctx context.Context, i *discordgo.Interaction, opts options) (reply, error)

func (b *Bot) handlers() map[string]commandHandler {
	return map[string]commandHandler{
		cmdSign:        b.sign,
		cmdUnsign:      b.unsign,
		cmdSub:         b.sub,
		cmdReady:       b.ready,
		cmdUnready:     b.unready,
		cmdLineup:      b.lineup,
		cmdChallenge:   b.challenge,
		cmdUnchallenge: b.unchallenge,
		cmdChallenges:  b.listChallenges,
		cmdStart:       b.start,
		cmdHighlight:   b.highlight,
		cmdRequestSub:  b.requestSub,
		cmdServers:     b.servers,
	}
}

// slowCommands talk to game servers and are acknowledged before they run.
var slowCommands = map[string]bool{
	cmdStart:   true,
	cmdServers: true,
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	handler, ok := b.handlers()[data.Name]
	if !ok {
		b.respond(ctx, i, reply{content: "Unknown command."})
		return
	}
	logger := b.logger.With("command", data.Name, "guild_id", i.GuildID, "channel_id", i.ChannelID)

	if slowCommands[data.Name] {
		err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		if err != nil {
			logger.WarnContext(ctx, "defer interaction failed", "error", err)
			return
		}
		out, err := handler(ctx, i, commandOptions(data))
		if err != nil {
			out = reply{content: b.errorText(ctx, logger, err)}
		}
		if _, err := b.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &out.content}); err != nil {
			logger.WarnContext(ctx, "edit deferred response failed", "error", err)
		}
		return
	}

	out, err := handler(ctx, i, commandOptions(data))
	if err != nil {
		out = reply{content: b.errorText(ctx, logger, err)}
	}
	b.respond(ctx, i, out)
}

func (b *Bot) respond(ctx context.Context, i *discordgo.Interaction, out reply) {
	data := &discordgo.InteractionResponseData{Content: out.content}
	if !out.public {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.WarnContext(ctx, "respond to interaction failed", "interaction_id", i.ID, "error", err)
	}
}

// errorText renders a use case error for the invoker. Unclassified errors are logged and hidden.
func (b *Bot) errorText(ctx context.Context, logger *logging.Logger, err error) string {
	var cooldown *usecase.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return cooldown.Error()
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrConflict),
		errors.Is(err, usecase.ErrPreconditionFailed):
		return err.Error()
	case errors.Is(err, usecase.ErrServerUnavailable):
		return "No game server is free right now, try again in a few minutes."
	case errors.Is(err, usecase.ErrExternalUnavailable):
		logger.WarnContext(ctx, "dependency unavailable", "error", err)
		return "A dependency is unavailable, try again shortly."
	default:
		logger.ErrorContext(ctx, "command failed", "error", err)
		return "Something went wrong while handling that command."
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	action, ok := parseOfferCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	logger := b.logger.With("challenge_id", action.ChallengeID, "action", action.Action, "channel_id", i.ChannelID)

	if b.now().Sub(action.PostedAt) > b.acceptTTL {
		content := "This challenge offer has expired."
		err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{Content: content, Components: []discordgo.MessageComponent{}},
		})
		if err != nil {
			logger.WarnContext(ctx, "expire offer failed", "error", err)
		}
		return
	}

	input := usecase.RespondChallengeInput{ChallengeID: action.ChallengeID, Venue: interactionVenue(i)}
	var (
		out reply
		err error
	)
	switch action.Action {
	case actionAccept:
		item, acceptErr := b.challenges.Accept(ctx, input)
		if err = acceptErr; err == nil {
			out = reply{content: fmt.Sprintf("Challenge accepted, you are playing **%s** in a %s match.", item.InitiatorTeamName, item.Format.Label())}
		}
	case actionDecline:
		if _, err = b.challenges.Decline(ctx, input); err == nil {
			out = reply{content: "Challenge declined."}
		}
	}
	if err != nil {
		out = reply{content: b.errorText(ctx, logger, err)}
	}
	b.respond(ctx, i, out)
}
