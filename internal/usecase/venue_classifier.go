package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
)

// VenueClassifier decides whether a channel is a matchmaking surface.
// Shared venues come from the static discovery list; team venues from the roster registry.
type VenueClassifier struct {
	teams  team.Repository
	shared map[venue.Key]venue.Venue
	order  []venue.Key
}

func NewVenueClassifier(teams team.Repository, shared []venue.Venue) *VenueClassifier {
	c := &VenueClassifier{
		teams:  teams,
		shared: make(map[venue.Key]venue.Venue, len(shared)),
	}
	for _, item := range shared {
		if item.Key.IsZero() || !item.Format.Valid() {
			continue
		}
		item.Role = venue.RoleShared
		if strings.TrimSpace(item.Name) == "" {
			item.Name = "Pickup " + item.Format.Label()
		}
		if _, exists := c.shared[item.Key]; !exists {
			c.order = append(c.order, item.Key)
		}
		c.shared[item.Key] = item
	}
	return c
}

// Resolve returns the venue or ErrNotAMatchmakingVenue. Registry failures surface as ErrRegistryFailure.
func (c *VenueClassifier) Resolve(ctx context.Context, key venue.Key) (venue.Venue, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.VenueClassifier.Resolve")
	defer span.End()

	if key.CommunityID == "" || key.ChannelID == "" {
		return venue.Venue{}, fmt.Errorf("%w: missing community or channel", ErrNotAMatchmakingVenue)
	}
	if item, ok := c.shared[key]; ok {
		return item, nil
	}

	owner, exists, err := c.teams.GetByID(ctx, key.CommunityID)
	if err != nil {
		return venue.Venue{}, withKind(ErrRegistryFailure, fmt.Errorf("get team %s: %w", key.CommunityID, err))
	}
	if !exists {
		return venue.Venue{}, fmt.Errorf("%w: community %s has no registered team", ErrNotAMatchmakingVenue, key.CommunityID)
	}
	format, ok := owner.FormatOf(key.ChannelID)
	if !ok {
		return venue.Venue{}, fmt.Errorf("%w: channel %s is not a %s lineup channel", ErrNotAMatchmakingVenue, key.ChannelID, owner.Name)
	}

	return venue.Venue{
		Key:          key,
		Format:       format,
		Role:         venue.RoleTeam,
		OwningTeamID: owner.ID,
		Name:         owner.Name,
	}, nil
}

func (c *VenueClassifier) SharedVenue(key venue.Key) (venue.Venue, bool) {
	item, ok := c.shared[key]
	return item, ok
}

// SharedVenues lists the discovery list in declaration order.
func (c *VenueClassifier) SharedVenues() []venue.Venue {
	out := make([]venue.Venue, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.shared[key])
	}
	return out
}

// TeamVenues expands a team record into its declared venues.
func TeamVenues(item team.Team) []venue.Venue {
	out := make([]venue.Venue, 0, len(item.SixesChannels)+len(item.EightsChannels))
	for _, format := range formation.All() {
		for _, channelID := range item.Channels(format) {
			out = append(out, venue.Venue{
				Key:          venue.NewKey(item.ID, channelID),
				Format:       format,
				Role:         venue.RoleTeam,
				OwningTeamID: item.ID,
				Name:         item.Name,
			})
		}
	}
	return out
}
