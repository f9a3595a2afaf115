package discordbot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
	"golang.org/x/time/rate"
)

const lineupRef = "lineup"

type NotifierConfig struct {
	// DMRate bounds direct messages per second across all recipients.
	DMRate  float64
	DMBurst int
	Logger  *logging.Logger
}

// Notifier delivers use case output into Discord channels and DMs.
type Notifier struct {
	session Session
	dm      *rate.Limiter
	logger  *logging.Logger
	now     func() time.Time
}

var _ usecase.Notifier = (*Notifier)(nil)

func NewNotifier(session Session, cfg NotifierConfig) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	limit := rate.Limit(cfg.DMRate)
	if cfg.DMRate <= 0 {
		limit = rate.Inf
	}
	burst := cfg.DMBurst
	if burst < 1 {
		burst = 1
	}
	return &Notifier{
		session: session,
		dm:      rate.NewLimiter(limit, burst),
		logger:  logger.Named("discord_notifier"),
		now:     time.Now,
	}
}

// RefreshLineup reposts the lineup at the bottom of the channel and drops the previous post.
func (n *Notifier) RefreshLineup(ctx context.Context, state roster.State) (roster.DisplayRefs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	channelID := state.Venue.Key.ChannelID
	if previous := state.Display[lineupRef]; previous != "" {
		if err := n.session.ChannelMessageDelete(channelID, previous); err != nil {
			n.logger.DebugContext(ctx, "delete previous lineup failed", "venue", state.Venue.Key.String(), "message_id", previous, "error", err)
		}
	}

	msg, err := n.session.ChannelMessageSend(channelID, RenderLineup(state))
	if err != nil {
		return nil, fmt.Errorf("post lineup: %w", err)
	}
	return roster.DisplayRefs{lineupRef: msg.ID}, nil
}

func (n *Notifier) NotifyVenue(ctx context.Context, key venue.Key, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.session.ChannelMessageSend(key.ChannelID, message); err != nil {
		return fmt.Errorf("send to %s: %w", key, err)
	}
	return nil
}

// NotifyPlayer sends a DM. Freeform players have no inbox and are skipped.
func (n *Notifier) NotifyPlayer(ctx context.Context, player roster.PlayerRef, message string) error {
	if !player.IsIdentified() || player.ID == "" {
		return nil
	}
	if err := n.dm.Wait(ctx); err != nil {
		return err
	}
	channel, err := n.session.UserChannelCreate(player.ID)
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", player.ID, err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, message); err != nil {
		return fmt.Errorf("dm %s: %w", player.ID, err)
	}
	return nil
}

func (n *Notifier) PostChallengeOffer(ctx context.Context, target venue.Key, item challenge.Challenge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := n.session.ChannelMessageSendComplex(target.ChannelID, OfferMessage(item, n.now()))
	if err != nil {
		return "", fmt.Errorf("post offer to %s: %w", target, err)
	}
	return msg.ID, nil
}

// ResolveChallengeOffer rewrites the offer with the note and strips its buttons.
func (n *Notifier) ResolveChallengeOffer(ctx context.Context, target venue.Key, messageID, note string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := discordgo.NewMessageEdit(target.ChannelID, messageID).SetContent(note)
	edit.Components = &[]discordgo.MessageComponent{}
	if _, err := n.session.ChannelMessageEditComplex(edit); err != nil {
		return fmt.Errorf("resolve offer %s: %w", messageID, err)
	}
	return nil
}

func (n *Notifier) WithdrawChallengeOffer(ctx context.Context, target venue.Key, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.session.ChannelMessageDelete(target.ChannelID, messageID); err != nil {
		return fmt.Errorf("withdraw offer %s: %w", messageID, err)
	}
	return nil
}
