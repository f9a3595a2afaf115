package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
)

const (
	blueLockID   = "100000000000000001"
	redWolvesID  = "100000000000000002"
	northStarID  = "100000000000000003"
	ironOwlsID   = "100000000000000004"
	sixesOnlyID  = "100000000000000005"
	sharedGuild  = "900000000000000001"
	sharedEights = "900000000000000081"
)

var (
	blueLockEights  = venue.NewKey(blueLockID, "200000000000000012")
	redWolvesEights = venue.NewKey(redWolvesID, "200000000000000022")
	northStarEights = venue.NewKey(northStarID, "200000000000000032")
	ironOwlsEights  = venue.NewKey(ironOwlsID, "200000000000000042")
	sharedVenueKey  = venue.NewKey(sharedGuild, sharedEights)
)

type offerCall struct {
	Target    venue.Key
	MessageID string
	Note      string
}

// recordingNotifier captures everything the services send out.
type recordingNotifier struct {
	mu          sync.Mutex
	refreshes   map[venue.Key]int
	venueMsgs   map[venue.Key][]string
	playerMsgs  map[string][]string
	offers      []offerCall
	resolved    []offerCall
	withdrawn   []offerCall
	failOffers  map[venue.Key]bool
	failPlayers bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		refreshes:  map[venue.Key]int{},
		venueMsgs:  map[venue.Key][]string{},
		playerMsgs: map[string][]string{},
		failOffers: map[venue.Key]bool{},
	}
}

func (n *recordingNotifier) RefreshLineup(_ context.Context, state roster.State) (roster.DisplayRefs, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refreshes[state.Venue.Key]++
	return roster.DisplayRefs{"lineup": "lineup-" + state.Venue.Key.ChannelID}, nil
}

func (n *recordingNotifier) NotifyVenue(_ context.Context, key venue.Key, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.venueMsgs[key] = append(n.venueMsgs[key], message)
	return nil
}

func (n *recordingNotifier) NotifyPlayer(_ context.Context, player roster.PlayerRef, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playerMsgs[player.IdentityKey()] = append(n.playerMsgs[player.IdentityKey()], message)
	if n.failPlayers {
		return errors.New("dm closed")
	}
	return nil
}

func (n *recordingNotifier) PostChallengeOffer(_ context.Context, target venue.Key, item challenge.Challenge) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOffers[target] {
		return "", errors.New("missing access")
	}
	messageID := "offer-" + target.ChannelID
	n.offers = append(n.offers, offerCall{Target: target, MessageID: messageID})
	return messageID, nil
}

func (n *recordingNotifier) ResolveChallengeOffer(_ context.Context, target venue.Key, messageID, note string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, offerCall{Target: target, MessageID: messageID, Note: note})
	return nil
}

func (n *recordingNotifier) WithdrawChallengeOffer(_ context.Context, target venue.Key, messageID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawn = append(n.withdrawn, offerCall{Target: target, MessageID: messageID})
	return nil
}

func (n *recordingNotifier) refreshCount(key venue.Key) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refreshes[key]
}

func (n *recordingNotifier) dmCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, msgs := range n.playerMsgs {
		total += len(msgs)
	}
	return total
}

type stubAllocator struct {
	mu         sync.Mutex
	assignment gameserver.Assignment
	selectErr  error
	applyErr   error
	selected   int
	applied    []gameserver.Assignment
}

func (a *stubAllocator) SelectServerAndMap(_ context.Context, format formation.Format) (gameserver.Assignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected++
	if a.selectErr != nil {
		return gameserver.Assignment{}, a.selectErr
	}
	out := a.assignment
	out.Format = format
	return out, nil
}

func (a *stubAllocator) ApplyMapAndConfig(_ context.Context, assignment gameserver.Assignment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.applyErr != nil {
		return a.applyErr
	}
	a.applied = append(a.applied, assignment)
	return nil
}

func (a *stubAllocator) Statuses(context.Context) ([]gameserver.Status, error) {
	return []gameserver.Status{{Server: a.assignment.Server, Online: true, MaxPlayers: 16}}, nil
}

// fixture wires every service over the in-memory repositories.
type fixture struct {
	teams      *memory.TeamRepository
	rosters    *memory.RosterRepository
	challenges *memory.ChallengeRegistry
	notifier   *recordingNotifier
	allocator  *stubAllocator
	classifier *VenueClassifier
	broadcasts *CooldownTracker
	locks      *keyedlock.Locker

	lineup    *LineupService
	challenge *ChallengeService
	handoff   *HandoffService
	alert     *AlertService
}

func testTeams() []team.Team {
	return []team.Team{
		{ID: blueLockID, Name: "Blue Lock", SixesChannels: []string{"200000000000000011"}, EightsChannels: []string{blueLockEights.ChannelID}},
		{ID: redWolvesID, Name: "Red Wolves", EightsChannels: []string{redWolvesEights.ChannelID}},
		{ID: northStarID, Name: "North Star", EightsChannels: []string{northStarEights.ChannelID}},
		{ID: ironOwlsID, Name: "Iron Owls", EightsChannels: []string{ironOwlsEights.ChannelID}},
		{ID: sixesOnlyID, Name: "Sixes Only", SixesChannels: []string{"200000000000000051"}},
	}
}

func newFixture(t *testing.T, teams []team.Team) *fixture {
	t.Helper()

	f := &fixture{
		teams:      memory.NewTeamRepository(teams),
		rosters:    memory.NewRosterRepository(),
		challenges: memory.NewChallengeRegistry(),
		notifier:   newRecordingNotifier(),
		allocator: &stubAllocator{assignment: gameserver.Assignment{
			Server: gameserver.Server{Name: "NA East #1", Address: "127.0.0.1:27015"},
			Map:    "8v8_london",
		}},
		broadcasts: NewCooldownTracker(DefaultBroadcastCooldown),
	}
	f.classifier = NewVenueClassifier(f.teams, []venue.Venue{{Key: sharedVenueKey, Format: formation.FormatEights}})

	f.locks = keyedlock.New()
	locks := f.locks
	logger := logging.NewNop()
	f.lineup = NewLineupService(f.classifier, f.rosters, f.challenges, locks, f.notifier, logger)
	f.challenge = NewChallengeService(f.classifier, f.teams, f.rosters, f.challenges, locks, f.notifier, nil, f.broadcasts, fixedIDs{}, logger)
	f.handoff = NewHandoffService(f.classifier, f.rosters, f.challenges, locks, f.allocator, f.notifier, nil, logger)
	f.alert = NewAlertService(f.classifier, f.rosters, memory.NewGameServerRepository(memory.SeedServers()), f.allocator, f.notifier, nil, nil, logger)
	return f
}

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "abcd", nil }

// fillLineup signs an identified player into every position of one lineup.
func (f *fixture) fillLineup(t *testing.T, key venue.Key, teamIndex int, prefix string) {
	t.Helper()

	for _, pos := range formation.FormatEights.Positions() {
		player := roster.Identified(fmt.Sprintf("%s-%s", prefix, pos), fmt.Sprintf("%s %s", prefix, pos))
		if _, err := f.lineup.Sign(t.Context(), SignInput{Venue: key, TeamIndex: teamIndex, Position: string(pos), Player: player}); err != nil {
			t.Fatalf("sign %s at %s: %v", player, key, err)
		}
	}
}

func (f *fixture) state(t *testing.T, key venue.Key) roster.State {
	t.Helper()

	state, exists, err := f.rosters.Get(t.Context(), key)
	if err != nil {
		t.Fatalf("get roster %s: %v", key, err)
	}
	if !exists {
		t.Fatalf("roster %s not stored", key)
	}
	return state
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
