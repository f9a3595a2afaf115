package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type RequestSubInput struct {
	Venue      venue.Key
	ServerName string
	Position   string
}

// AlertService covers venue-wide pings: highlights, sub requests and server status.
type AlertService struct {
	classifier  *VenueClassifier
	rosters     roster.Repository
	servers     gameserver.Repository
	allocator   ServerAllocator
	notifier    Notifier
	highlights  *CooldownTracker
	subRequests *CooldownTracker
	logger      *logging.Logger
}

func NewAlertService(
	classifier *VenueClassifier,
	rosterRepo roster.Repository,
	serverRepo gameserver.Repository,
	allocator ServerAllocator,
	notifier Notifier,
	highlights *CooldownTracker,
	subRequests *CooldownTracker,
	logger *logging.Logger,
) *AlertService {
	if logger == nil {
		logger = logging.Default()
	}
	if highlights == nil {
		highlights = NewCooldownTracker(DefaultHighlightCooldown)
	}
	if subRequests == nil {
		subRequests = NewCooldownTracker(DefaultSubRequestCooldown)
	}
	return &AlertService{
		classifier:  classifier,
		rosters:     rosterRepo,
		servers:     serverRepo,
		allocator:   allocator,
		notifier:    notifier,
		highlights:  highlights,
		subRequests: subRequests,
		logger:      logger.Named("alert"),
	}
}

// Highlight pings the venue with the positions still open.
func (s *AlertService) Highlight(ctx context.Context, key venue.Key) (missing []formation.Position, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertService.Highlight", attribute.String("venue", key.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	state, exists, err := s.rosters.Get(ctx, v.Key)
	if err != nil {
		return nil, fmt.Errorf("get roster %s: %w", v.Key, err)
	}
	// The cooldown is only spent once the roster read succeeded.
	if remaining := s.highlights.TryFire(highlightCooldownKey(v.Key)); remaining > 0 {
		return nil, &CooldownError{Scope: "highlight", Remaining: remaining}
	}
	if !exists {
		state = roster.NewState(v, time.Time{})
	}
	missing = openPositions(state)

	message := fmt.Sprintf("%s %s needs players.", v.Name, v.Format.Label())
	if len(missing) > 0 {
		message += " Open: " + joinPositions(missing) + "."
	}
	if notifyErr := s.notifier.NotifyVenue(ctx, v.Key, message); notifyErr != nil {
		s.logger.WarnContext(ctx, "highlight delivery failed", "venue", v.Key.String(), "error", notifyErr)
	}
	return missing, nil
}

// RequestSub asks the venue for a substitute at one position on a running server.
func (s *AlertService) RequestSub(ctx context.Context, input RequestSubInput) (err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertService.RequestSub", attribute.String("venue", input.Venue.String()))
	defer func() { endSpan(span, err) }()

	v, err := s.classifier.Resolve(ctx, input.Venue)
	if err != nil {
		return err
	}
	pos, err := formation.ParsePosition(v.Format, input.Position)
	if err != nil {
		return mapDomainError(err)
	}
	name := strings.TrimSpace(input.ServerName)
	if name == "" {
		return fmt.Errorf("%w: server is required", ErrInvalidInput)
	}
	server, exists, err := s.servers.GetByName(ctx, name)
	if err != nil {
		return withKind(ErrRegistryFailure, fmt.Errorf("get server %s: %w", name, err))
	}
	if !exists {
		return fmt.Errorf("%w: unknown server %q", ErrInvalidInput, name)
	}

	if remaining := s.subRequests.TryFire(subRequestCooldownKey(v.Key, pos)); remaining > 0 {
		return &CooldownError{Scope: "sub request for " + string(pos), Remaining: remaining}
	}

	message := fmt.Sprintf("Sub needed at %s on %s. Connect: %s", pos, server.Name, server.ConnectURL())
	if notifyErr := s.notifier.NotifyVenue(ctx, v.Key, message); notifyErr != nil {
		s.logger.WarnContext(ctx, "sub request delivery failed", "venue", v.Key.String(), "error", notifyErr)
	}
	return nil
}

func (s *AlertService) ServerStatuses(ctx context.Context) (statuses []gameserver.Status, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertService.ServerStatuses")
	defer func() { endSpan(span, err) }()

	statuses, err = s.allocator.Statuses(ctx)
	if err != nil {
		return nil, withKind(ErrExternalUnavailable, fmt.Errorf("query server status: %w", err))
	}
	return statuses, nil
}

// openPositions lists empty slots of every lineup, first team first.
func openPositions(state roster.State) []formation.Position {
	var out []formation.Position
	for _, team := range state.Teams {
		for _, pos := range state.Format().Positions() {
			if !team.Filled(pos) {
				out = append(out, pos)
			}
		}
	}
	return out
}

func joinPositions(positions []formation.Position) string {
	parts := make([]string, len(positions))
	for i, pos := range positions {
		parts[i] = string(pos)
	}
	return strings.Join(parts, ", ")
}
