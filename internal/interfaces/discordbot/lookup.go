package discordbot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

// bestMatch picks the closest name. An exact case-insensitive hit wins outright;
// a tie between fuzzy ranks is reported as ambiguous.
func bestMatch(query string, names []string) (int, error) {
	query = strings.TrimSpace(query)
	for idx, name := range names {
		if strings.EqualFold(name, query) {
			return idx, nil
		}
	}

	ranks := fuzzy.RankFindFold(query, names)
	if len(ranks) == 0 {
		return -1, fmt.Errorf("%w: nothing matches %q", usecase.ErrInvalidInput, query)
	}
	sort.Sort(ranks)
	if len(ranks) > 1 && ranks[0].Distance == ranks[1].Distance {
		return -1, fmt.Errorf("%w: %q matches both %s and %s", usecase.ErrInvalidInput, query, ranks[0].Target, ranks[1].Target)
	}
	return ranks[0].OriginalIndex, nil
}

// resolveTeam finds a registered team by id or by approximate name.
func (b *Bot) resolveTeam(ctx context.Context, query string) (team.Team, error) {
	if item, ok, err := b.teams.GetByID(ctx, strings.TrimSpace(query)); err != nil {
		return team.Team{}, fmt.Errorf("%w: %v", usecase.ErrRegistryFailure, err)
	} else if ok {
		return item, nil
	}

	teams, err := b.teams.ListWithVenues(ctx)
	if err != nil {
		return team.Team{}, fmt.Errorf("%w: %v", usecase.ErrRegistryFailure, err)
	}
	names := make([]string, len(teams))
	for idx, item := range teams {
		names[idx] = item.Name
	}
	idx, err := bestMatch(query, names)
	if err != nil {
		return team.Team{}, err
	}
	return teams[idx], nil
}

// resolveSharedVenue accepts a "community/channel" key or a shared venue's name.
func (b *Bot) resolveSharedVenue(query string) (venue.Venue, error) {
	if key, err := venue.ParseKey(query); err == nil {
		if v, ok := b.classifier.SharedVenue(key); ok {
			return v, nil
		}
	}

	shared := b.classifier.SharedVenues()
	names := make([]string, len(shared))
	for idx, v := range shared {
		names[idx] = v.Name
	}
	idx, err := bestMatch(query, names)
	if err != nil {
		return venue.Venue{}, err
	}
	return shared[idx], nil
}
