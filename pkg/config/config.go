package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Timetable  TimetableConfig
	BlockCache BlockCacheConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig bounds the weekly grid and selects where entries live.
type TimetableConfig struct {
	WorkingDays     []string
	PeriodsPerDay   int
	HistoryLimit    int
	Storage         string
	SeedFile        string
	Autosave        bool
	AutosaveRetries int
	PeriodTimes     string
}

// BlockCacheConfig controls caching of the active exam blocks in Redis.
type BlockCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load reads .env (optional) and the process environment.
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	workingDays, err := normalizeDays(splitAndTrim(v.GetString("TIMETABLE_WORKING_DAYS")))
	if err != nil {
		return nil, err
	}
	cfg.Timetable = TimetableConfig{
		WorkingDays:     workingDays,
		PeriodsPerDay:   v.GetInt("TIMETABLE_PERIODS_PER_DAY"),
		HistoryLimit:    v.GetInt("TIMETABLE_HISTORY_LIMIT"),
		Storage:         strings.ToLower(strings.TrimSpace(v.GetString("TIMETABLE_STORAGE"))),
		SeedFile:        v.GetString("TIMETABLE_SEED_FILE"),
		Autosave:        v.GetBool("TIMETABLE_AUTOSAVE"),
		AutosaveRetries: v.GetInt("TIMETABLE_AUTOSAVE_RETRIES"),
		PeriodTimes:     v.GetString("TIMETABLE_PERIOD_TIMES"),
	}

	cfg.BlockCache = BlockCacheConfig{
		Enabled: v.GetBool("ENABLE_BLOCK_CACHE"),
		TTL:     parseDuration(v.GetString("BLOCK_CACHE_TTL"), 5*time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Timetable.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("TIMETABLE_STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Timetable.Storage)
	}
	if c.Timetable.PeriodsPerDay < 1 {
		return fmt.Errorf("TIMETABLE_PERIODS_PER_DAY must be positive, got %d", c.Timetable.PeriodsPerDay)
	}
	if len(c.Timetable.WorkingDays) == 0 {
		return errors.New("TIMETABLE_WORKING_DAYS must name at least one day")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "timetable:")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_WORKING_DAYS", "Monday,Tuesday,Wednesday,Thursday,Friday,Saturday")
	v.SetDefault("TIMETABLE_PERIODS_PER_DAY", 8)
	v.SetDefault("TIMETABLE_HISTORY_LIMIT", 200)
	v.SetDefault("TIMETABLE_STORAGE", StoragePostgres)
	v.SetDefault("TIMETABLE_SEED_FILE", "")
	v.SetDefault("TIMETABLE_AUTOSAVE", false)
	v.SetDefault("TIMETABLE_AUTOSAVE_RETRIES", 3)
	v.SetDefault("TIMETABLE_PERIOD_TIMES", "")

	v.SetDefault("ENABLE_BLOCK_CACHE", false)
	v.SetDefault("BLOCK_CACHE_TTL", "5m")
}

func normalizeDays(days []string) ([]string, error) {
	result := make([]string, 0, len(days))
	for _, day := range days {
		normalized, err := dateutil.NormalizeDay(day)
		if err != nil {
			return nil, fmt.Errorf("TIMETABLE_WORKING_DAYS: %w", err)
		}
		result = append(result, normalized)
	}
	return result, nil
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
