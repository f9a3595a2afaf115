package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/pickup-matchmaking/external/announce"
	"github.com/riskibarqy/pickup-matchmaking/internal/config"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	gameserverinfra "github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/gameserver/rcon"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/pickup-matchmaking/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/pickup-matchmaking/internal/interfaces/discordbot"
	"github.com/riskibarqy/pickup-matchmaking/internal/interfaces/opsapi"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"golang.org/x/sync/errgroup"
)

// App owns every long-running component of the bot process.
type App struct {
	cfg         config.Config
	logger      *logging.Logger
	db          *sqlx.DB
	gateway     *discordgo.Session
	bot         *discordbot.Bot
	ops         *http.Server
	maintenance *usecase.MaintenanceService
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	teams, servers, err := a.openRegistry(ctx)
	if err != nil {
		return nil, err
	}
	shared, err := sharedVenues(cfg.SharedVenues)
	if err != nil {
		return nil, a.closeAfter(err)
	}

	gateway, err := discordgo.New("Bot " + strings.TrimSpace(cfg.DiscordToken))
	if err != nil {
		return nil, a.closeAfter(fmt.Errorf("create discord session: %w", err))
	}
	gateway.Identify.Intents = discordgo.IntentsGuilds
	a.gateway = gateway

	breakers := resilience.NewRegistry(cfg.CircuitBreaker)
	rconClient := rcon.NewClient(rcon.ClientConfig{
		Timeout:  cfg.RconTimeout,
		Breakers: breakers,
		Logger:   logger,
	})
	allocator := gameserverinfra.NewAllocator(servers, rconClient, gameserverinfra.AllocatorConfig{
		MaxPlayersForPickup: cfg.ServerMaxPlayersForPickup,
		MapSwitchDelay:      cfg.MapSwitchDelay,
		Logger:              logger,
	})
	announcer, err := announce.NewClient(announce.ClientConfig{
		WebhookURL:     cfg.AnnounceWebhookURL,
		Timeout:        cfg.AnnounceTimeout,
		CircuitBreaker: cfg.CircuitBreaker,
		Logger:         logger,
	})
	if err != nil {
		return nil, a.closeAfter(err)
	}

	notifier := discordbot.NewNotifier(gateway, discordbot.NotifierConfig{
		DMRate:  cfg.DMRatePerSecond,
		DMBurst: cfg.DMBurst,
		Logger:  logger,
	})

	rosters := memory.NewRosterRepository()
	registry := memory.NewChallengeRegistry()
	locks := keyedlock.New()
	classifier := usecase.NewVenueClassifier(teams, shared)

	lineups := usecase.NewLineupService(classifier, rosters, registry, locks, notifier, logger)
	challenges := usecase.NewChallengeService(
		classifier, teams, rosters, registry, locks, notifier, announcer,
		usecase.NewCooldownTracker(cfg.BroadcastCooldown), nil, logger,
	)
	handoffs := usecase.NewHandoffService(classifier, rosters, registry, locks, allocator, notifier, announcer, logger)
	alerts := usecase.NewAlertService(
		classifier, rosters, servers, allocator, notifier,
		usecase.NewCooldownTracker(cfg.HighlightCooldown),
		usecase.NewCooldownTracker(cfg.SubRequestCooldown),
		logger,
	)
	a.maintenance = usecase.NewMaintenanceService(rosters, locks, notifier, dailySchedule(cfg), logger)

	a.bot = discordbot.New(gateway, discordbot.Services{
		Lineups:    lineups,
		Challenges: challenges,
		Handoffs:   handoffs,
		Alerts:     alerts,
		Classifier: classifier,
		Teams:      teams,
	}, discordbot.Config{AcceptTTL: cfg.ChallengeAcceptTTL, Logger: logger})

	handler := opsapi.NewHandler(lineups, challenges, teams, logger)
	a.ops = &http.Server{
		Addr:         cfg.OpsHTTPAddr,
		Handler:      opsapi.NewRouter(handler, logger, opsapi.RouterConfig{OpsToken: cfg.OpsToken, PprofEnabled: cfg.PprofEnabled}),
		ReadTimeout:  cfg.OpsReadTimeout,
		WriteTimeout: cfg.OpsWriteTimeout,
	}
	if a.ops.Addr == "" {
		return nil, a.closeAfter(errors.New("ops http addr cannot be empty"))
	}

	logger.Info("app wired",
		"registry", registrySource(cfg),
		"shared_venues", len(shared),
		"announce_enabled", announcer.Enabled(),
	)
	return a, nil
}

// Run blocks until ctx ends or one component fails; the others are then stopped.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if strings.TrimSpace(a.cfg.DiscordToken) != "" {
		g.Go(func() error {
			return a.bot.Run(gctx, a.gateway, a.cfg.DiscordAppID, a.cfg.DiscordGuildIDs)
		})
	} else {
		a.logger.Warn("DISCORD_TOKEN is empty, discord gateway disabled")
	}
	g.Go(func() error {
		return opsapi.Serve(gctx, a.ops, a.logger)
	})
	g.Go(func() error {
		return a.maintenance.Run(gctx)
	})

	return g.Wait()
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) closeAfter(err error) error {
	if closeErr := a.Close(); closeErr != nil {
		a.logger.Warn("close database failed", "error", closeErr)
	}
	return err
}

func (a *App) openRegistry(ctx context.Context) (team.Repository, gameserver.Repository, error) {
	if !a.cfg.UsesDatabase() {
		return memory.NewTeamRepository(memory.SeedTeams()), memory.NewGameServerRepository(memory.SeedServers()), nil
	}

	db, err := openDB(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	if a.cfg.AppEnv == config.EnvDev {
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			return nil, nil, a.closeAfter(err)
		}
	}

	teams := cache.NewTeamRepository(postgres.NewTeamRepository(db), a.cfg.RegistryCacheTTL)
	servers := cache.NewGameServerRepository(postgres.NewGameServerRepository(db), a.cfg.RegistryCacheTTL)
	return teams, servers, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := registryDSN(cfg.DBURL, cfg.DBDisablePreparedBinary, cfg.ServiceName)
	opts := []otelsql.Option{
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(dsn); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	otelsql.ReportDBStatsMetrics(db.DB, opts...)
	return db, nil
}

func sharedVenues(items []config.SharedVenue) ([]venue.Venue, error) {
	out := make([]venue.Venue, 0, len(items))
	for _, item := range items {
		format, err := formation.ParseFormat(item.Format)
		if err != nil {
			return nil, fmt.Errorf("shared venue %s/%s: %w", item.CommunityID, item.ChannelID, err)
		}
		out = append(out, venue.Venue{
			Key:    venue.NewKey(item.CommunityID, item.ChannelID),
			Format: format,
			Role:   venue.RoleShared,
			Name:   item.Name,
		})
	}
	return out, nil
}

func dailySchedule(cfg config.Config) usecase.DailySchedule {
	return usecase.DailySchedule{
		Hour:     cfg.DailyClearHour,
		Minute:   cfg.DailyClearMinute,
		Location: cfg.DailyClearLocation,
	}
}

func registrySource(cfg config.Config) string {
	if cfg.UsesDatabase() {
		return "postgres"
	}
	return "memory"
}
