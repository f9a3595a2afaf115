package gameserver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/sourcegraph/conc/iter"
)

const (
	DefaultMaxPlayersForPickup = 8
	defaultMapSwitchDelay      = 500 * time.Millisecond
	defaultQueryConcurrency    = 8
)

var ErrNoServerAvailable = crerr.New("no game server qualifies for a pickup")

// Executor runs console commands on a game server.
type Executor interface {
	Execute(ctx context.Context, server gameserver.Server, commands ...string) ([]string, error)
}

type AllocatorConfig struct {
	MaxPlayersForPickup int
	// MapSwitchDelay separates the map change from the config exec. Negative disables the pause.
	MapSwitchDelay   time.Duration
	QueryConcurrency int
	Logger           *logging.Logger
}

// Allocator picks a free server for a match and prepares it.
type Allocator struct {
	servers          gameserver.Repository
	rcon             Executor
	maxPlayers       int
	mapSwitchDelay   time.Duration
	queryConcurrency int
	logger           *logging.Logger
	pick             func(n int) int
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewAllocator(servers gameserver.Repository, rcon Executor, cfg AllocatorConfig) *Allocator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	maxPlayers := cfg.MaxPlayersForPickup
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayersForPickup
	}
	delay := cfg.MapSwitchDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = defaultMapSwitchDelay
	}
	concurrency := cfg.QueryConcurrency
	if concurrency <= 0 {
		concurrency = defaultQueryConcurrency
	}

	return &Allocator{
		servers:          servers,
		rcon:             rcon,
		maxPlayers:       maxPlayers,
		mapSwitchDelay:   delay,
		queryConcurrency: concurrency,
		logger:           logger.Named("allocator"),
		pick:             rand.IntN,
		sleep:            sleepContext,
	}
}

// Statuses queries every registered server concurrently. Unreachable servers come back offline, in registry order.
func (a *Allocator) Statuses(ctx context.Context) ([]gameserver.Status, error) {
	servers, err := a.servers.List(ctx)
	if err != nil {
		return nil, crerr.Wrap(err, "list game servers")
	}

	mapper := iter.Mapper[gameserver.Server, gameserver.Status]{MaxGoroutines: a.queryConcurrency}
	return mapper.Map(servers, func(server *gameserver.Server) gameserver.Status {
		return a.queryStatus(ctx, *server)
	}), nil
}

func (a *Allocator) queryStatus(ctx context.Context, server gameserver.Server) gameserver.Status {
	responses, err := a.rcon.Execute(ctx, server, "status")
	if err != nil || len(responses) == 0 {
		a.logger.WarnContext(ctx, "game server status query failed", "server", server.Name, "error", err)
		return offline(server)
	}
	return ParseStatus(server, responses[0])
}

// SelectServerAndMap returns the first online server with room for a pickup and a random map from the format's pool.
func (a *Allocator) SelectServerAndMap(ctx context.Context, format formation.Format) (gameserver.Assignment, error) {
	pool := gameserver.MapPool(format)
	if len(pool) == 0 {
		return gameserver.Assignment{}, crerr.Newf("no map pool for format %q", format)
	}

	statuses, err := a.Statuses(ctx)
	if err != nil {
		return gameserver.Assignment{}, err
	}
	for _, status := range statuses {
		if !status.Online || status.Players > a.maxPlayers {
			continue
		}
		return gameserver.Assignment{
			Server: status.Server,
			Map:    pool[a.pick(len(pool))],
			Format: format,
		}, nil
	}
	return gameserver.Assignment{}, crerr.Wrapf(ErrNoServerAvailable, "checked %d server(s)", len(statuses))
}

// ApplyMapAndConfig switches the map, waits for the level to load, then executes the format config.
func (a *Allocator) ApplyMapAndConfig(ctx context.Context, assignment gameserver.Assignment) error {
	if _, err := a.rcon.Execute(ctx, assignment.Server, "map "+assignment.Map); err != nil {
		return crerr.Wrapf(err, "change map on %s", assignment.Server.Name)
	}
	if err := a.sleep(ctx, a.mapSwitchDelay); err != nil {
		return err
	}
	cfg := fmt.Sprintf("exec %s", assignment.ConfigName())
	if _, err := a.rcon.Execute(ctx, assignment.Server, cfg); err != nil {
		return crerr.Wrapf(err, "exec config on %s", assignment.Server.Name)
	}

	a.logger.InfoContext(ctx, "game server prepared", "server", assignment.Server.Name, "map", assignment.Map, "config", assignment.ConfigName())
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
