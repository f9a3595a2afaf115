package usecase

import (
	"context"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

// Notifier is the outbound side of the chat adapter. Callers log and drop its errors.
type Notifier interface {
	// RefreshLineup redraws the venue's lineup message and returns the handles it now owns.
	RefreshLineup(ctx context.Context, state roster.State) (roster.DisplayRefs, error)
	NotifyVenue(ctx context.Context, key venue.Key, message string) error
	NotifyPlayer(ctx context.Context, player roster.PlayerRef, message string) error
	PostChallengeOffer(ctx context.Context, target venue.Key, item challenge.Challenge) (string, error)
	// ResolveChallengeOffer edits an offer into its final, non-interactive form.
	ResolveChallengeOffer(ctx context.Context, target venue.Key, messageID, note string) error
	WithdrawChallengeOffer(ctx context.Context, target venue.Key, messageID string) error
}

// Announcer publishes community-wide posts. Failures never block the caller.
type Announcer interface {
	AnnounceChallenge(ctx context.Context, item challenge.Challenge) error
	AnnounceMatch(ctx context.Context, match gameserver.Match) error
}

// ServerAllocator is the game-server collaborator.
type ServerAllocator interface {
	SelectServerAndMap(ctx context.Context, format formation.Format) (gameserver.Assignment, error)
	ApplyMapAndConfig(ctx context.Context, assignment gameserver.Assignment) error
	Statuses(ctx context.Context) ([]gameserver.Status, error)
}

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceChallenge(context.Context, challenge.Challenge) error { return nil }
func (nopAnnouncer) AnnounceMatch(context.Context, gameserver.Match) error        { return nil }
