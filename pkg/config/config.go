package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Duplicate course policies for course codes crossing organisation boundaries.
const (
	DuplicatePolicySkip  = "skip"
	DuplicatePolicyError = "error"
)

type Config struct {
	Env  string
	Port int

	CORSAllowedOrigins []string

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Source    SourceConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Archive   ArchiveConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// SourceConfig describes the remote timetable API.
type SourceConfig struct {
	RootURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	ProbeCourse   string
	SessionCode   string
	VerifySession bool
}

// SyncConfig tunes a synchronization run.
type SyncConfig struct {
	CrawlWorkers    int
	DuplicatePolicy string
	RunLockTTL      time.Duration
	// SessionCacheTTL bounds how long a resolved session code is reused
	// before the landing page is scraped again. Zero disables the cache.
	SessionCacheTTL time.Duration
}

// SchedulerConfig controls the fixed-cadence sync trigger.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ArchiveConfig controls per-run report artifacts on local disk.
type ArchiveConfig struct {
	Enabled   bool
	Dir       string
	Retention time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.CORSAllowedOrigins = splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Source = SourceConfig{
		RootURL:       v.GetString("SOURCE_ROOT_URL"),
		Timeout:       parseDuration(v.GetString("SOURCE_TIMEOUT"), 30*time.Second),
		RetryAttempts: v.GetInt("SOURCE_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("SOURCE_RETRY_DELAY"), 2*time.Second),
		ProbeCourse:   v.GetString("SOURCE_PROBE_COURSE"),
		SessionCode:   v.GetString("SOURCE_SESSION_CODE"),
		VerifySession: v.GetBool("SOURCE_VERIFY_SESSION"),
	}

	cfg.Sync = SyncConfig{
		CrawlWorkers:    v.GetInt("SYNC_CRAWL_WORKERS"),
		DuplicatePolicy: v.GetString("SYNC_DUPLICATE_POLICY"),
		RunLockTTL:      parseDuration(v.GetString("SYNC_RUN_LOCK_TTL"), 30*time.Minute),
		SessionCacheTTL: parseDuration(v.GetString("SYNC_SESSION_CACHE_TTL"), time.Hour),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:  v.GetBool("SCHEDULER_ENABLED"),
		Interval: parseDuration(v.GetString("SCHEDULER_INTERVAL"), 24*time.Hour),
	}

	cfg.Archive = ArchiveConfig{
		Enabled:   v.GetBool("ARCHIVE_ENABLED"),
		Dir:       v.GetString("ARCHIVE_DIR"),
		Retention: parseDuration(v.GetString("ARCHIVE_RETENTION"), 30*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOURCE_ROOT_URL", "https://timetable.iit.artsci.utoronto.ca")
	v.SetDefault("SOURCE_TIMEOUT", "30s")
	v.SetDefault("SOURCE_RETRY_ATTEMPTS", 3)
	v.SetDefault("SOURCE_RETRY_DELAY", "2s")
	v.SetDefault("SOURCE_PROBE_COURSE", "MAT137")
	v.SetDefault("SOURCE_SESSION_CODE", "")
	v.SetDefault("SOURCE_VERIFY_SESSION", false)

	v.SetDefault("SYNC_CRAWL_WORKERS", 4)
	v.SetDefault("SYNC_DUPLICATE_POLICY", DuplicatePolicySkip)
	v.SetDefault("SYNC_RUN_LOCK_TTL", "30m")
	v.SetDefault("SYNC_SESSION_CACHE_TTL", "1h")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", "24h")

	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_DIR", "./reports")
	v.SetDefault("ARCHIVE_RETENTION", "720h")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
