package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
)

// Config stores runtime configuration for the bot process.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	DiscordToken string
	DiscordAppID string
	// DiscordGuildIDs limits slash command registration; empty registers globally.
	DiscordGuildIDs []string
	DMRatePerSecond float64
	DMBurst         int

	OpsHTTPAddr     string
	OpsToken        string
	OpsReadTimeout  time.Duration
	OpsWriteTimeout time.Duration
	PprofEnabled    bool

	DBURL                   string
	DBMaxOpenConns          int
	DBMaxIdleConns          int
	DBConnMaxLifetime       time.Duration
	DBDisablePreparedBinary bool
	RegistryCacheTTL        time.Duration

	SharedVenuesFile string
	SharedVenues     []SharedVenue

	BroadcastCooldown  time.Duration
	HighlightCooldown  time.Duration
	SubRequestCooldown time.Duration
	ChallengeAcceptTTL time.Duration

	DailyClearHour     int
	DailyClearMinute   int
	DailyClearLocation *time.Location

	RconTimeout               time.Duration
	ServerMaxPlayersForPickup int
	MapSwitchDelay            time.Duration

	AnnounceWebhookURL string
	AnnounceTimeout    time.Duration

	CircuitBreaker resilience.CircuitBreakerConfig

	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// UsesDatabase reports whether the registry is Postgres-backed; otherwise the seeded in-memory registry is used.
func (c Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DBURL) != ""
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	logLevel, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "pickup-matchmaking"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:           logLevel,
		DiscordToken:       strings.TrimSpace(getEnv("DISCORD_TOKEN", "")),
		DiscordAppID:       strings.TrimSpace(getEnv("DISCORD_APP_ID", "")),
		DiscordGuildIDs:    splitCSV(getEnv("DISCORD_GUILD_IDS", "")),
		OpsHTTPAddr:        strings.TrimSpace(getEnv("OPS_HTTP_ADDR", ":8080")),
		OpsToken:           strings.TrimSpace(getEnv("OPS_TOKEN", "")),
		DBURL:              strings.TrimSpace(getEnv("DB_URL", "")),
		SharedVenuesFile:   strings.TrimSpace(getEnv("SHARED_VENUES_FILE", "")),
		AnnounceWebhookURL: strings.TrimSpace(getEnv("ANNOUNCE_WEBHOOK_URL", "")),
	}
	if appEnv != EnvDev && cfg.DiscordToken == "" {
		return Config{}, fmt.Errorf("DISCORD_TOKEN is required when APP_ENV=%s", appEnv)
	}

	if cfg.DMRatePerSecond, err = getEnvAsFloat("DISCORD_DM_RATE", 5); err != nil {
		return Config{}, fmt.Errorf("parse DISCORD_DM_RATE: %w", err)
	}
	if cfg.DMRatePerSecond <= 0 {
		return Config{}, fmt.Errorf("DISCORD_DM_RATE must be > 0")
	}
	if cfg.DMBurst, err = getEnvAsInt("DISCORD_DM_BURST", 5); err != nil {
		return Config{}, fmt.Errorf("parse DISCORD_DM_BURST: %w", err)
	}
	if cfg.DMBurst < 1 {
		return Config{}, fmt.Errorf("DISCORD_DM_BURST must be >= 1")
	}

	if cfg.OpsReadTimeout, err = positiveDuration("OPS_READ_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	if cfg.OpsWriteTimeout, err = positiveDuration("OPS_WRITE_TIMEOUT", "15s"); err != nil {
		return Config{}, err
	}

	if cfg.PprofEnabled, err = strconv.ParseBool(getEnv("PPROF_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}

	if cfg.DBMaxOpenConns, err = getEnvAsInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.DBMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.DBMaxIdleConns, err = getEnvAsInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS must be >= 0")
	}
	if cfg.DBConnMaxLifetime, err = positiveDuration("DB_CONN_MAX_LIFETIME", "30m"); err != nil {
		return Config{}, err
	}
	if cfg.DBDisablePreparedBinary, err = strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")); err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	if cfg.RegistryCacheTTL, err = positiveDuration("REGISTRY_CACHE_TTL", "60s"); err != nil {
		return Config{}, err
	}

	if cfg.SharedVenuesFile != "" {
		if cfg.SharedVenues, err = LoadSharedVenues(cfg.SharedVenuesFile); err != nil {
			return Config{}, fmt.Errorf("load SHARED_VENUES_FILE: %w", err)
		}
	}

	if cfg.BroadcastCooldown, err = positiveDuration("BROADCAST_COOLDOWN", "10m"); err != nil {
		return Config{}, err
	}
	if cfg.HighlightCooldown, err = positiveDuration("HIGHLIGHT_COOLDOWN", "10m"); err != nil {
		return Config{}, err
	}
	if cfg.SubRequestCooldown, err = positiveDuration("SUB_REQUEST_COOLDOWN", "15m"); err != nil {
		return Config{}, err
	}
	if cfg.ChallengeAcceptTTL, err = positiveDuration("CHALLENGE_ACCEPT_TTL", "1h"); err != nil {
		return Config{}, err
	}

	if cfg.DailyClearHour, cfg.DailyClearMinute, err = parseClock(getEnv("DAILY_CLEAR_TIME", "02:00")); err != nil {
		return Config{}, fmt.Errorf("parse DAILY_CLEAR_TIME: %w", err)
	}
	if cfg.DailyClearLocation, err = time.LoadLocation(getEnv("DAILY_CLEAR_TZ", "Europe/Paris")); err != nil {
		return Config{}, fmt.Errorf("parse DAILY_CLEAR_TZ: %w", err)
	}

	if cfg.RconTimeout, err = positiveDuration("RCON_TIMEOUT", "5s"); err != nil {
		return Config{}, err
	}
	if cfg.ServerMaxPlayersForPickup, err = getEnvAsInt("SERVER_MAX_PLAYERS_FOR_PICKUP", 8); err != nil {
		return Config{}, fmt.Errorf("parse SERVER_MAX_PLAYERS_FOR_PICKUP: %w", err)
	}
	if cfg.ServerMaxPlayersForPickup < 0 {
		return Config{}, fmt.Errorf("SERVER_MAX_PLAYERS_FOR_PICKUP must be >= 0")
	}
	if cfg.MapSwitchDelay, err = time.ParseDuration(getEnv("MAP_SWITCH_DELAY", "500ms")); err != nil {
		return Config{}, fmt.Errorf("parse MAP_SWITCH_DELAY: %w", err)
	}
	if cfg.AnnounceTimeout, err = positiveDuration("ANNOUNCE_TIMEOUT", "5s"); err != nil {
		return Config{}, err
	}

	if cfg.CircuitBreaker, err = loadCircuitBreaker(); err != nil {
		return Config{}, err
	}

	if cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeUploadRate, err = positiveDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadCircuitBreaker() (resilience.CircuitBreakerConfig, error) {
	var (
		cfg resilience.CircuitBreakerConfig
		err error
	)
	if cfg.Enabled, err = strconv.ParseBool(getEnv("CIRCUIT_BREAKER_ENABLED", "true")); err != nil {
		return cfg, fmt.Errorf("parse CIRCUIT_BREAKER_ENABLED: %w", err)
	}
	if cfg.FailureThreshold, err = getEnvAsInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 3); err != nil {
		return cfg, fmt.Errorf("parse CIRCUIT_BREAKER_FAILURE_THRESHOLD: %w", err)
	}
	if cfg.OpenTimeout, err = time.ParseDuration(getEnv("CIRCUIT_BREAKER_OPEN_TIMEOUT", "30s")); err != nil {
		return cfg, fmt.Errorf("parse CIRCUIT_BREAKER_OPEN_TIMEOUT: %w", err)
	}
	if cfg.HalfOpenMaxReq, err = getEnvAsInt("CIRCUIT_BREAKER_HALF_OPEN_MAX_REQ", 1); err != nil {
		return cfg, fmt.Errorf("parse CIRCUIT_BREAKER_HALF_OPEN_MAX_REQ: %w", err)
	}
	return cfg, cfg.Validate()
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return value, nil
}

// parseClock reads "HH:MM" in 24h form.
func parseClock(raw string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.ParseFloat(value, 64)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
