package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DefaultPriorWeight = 5.0
)

type Config struct {
	Port int

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	Store        string
	JWTSecret    string
	PriorWeight  float64
	CacheTTL     time.Duration
	NotifyPrefix string

	// SeedPnms are registered as known candidates by the memory store, which
	// has no pnms table to read them from.
	SeedPnms []uuid.UUID

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present), the environment and then args. Flags win
// over the environment.
func Load(name string, args []string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "port", envInt("PORT", 8080), "HTTP port")
	fs.StringVar(&cfg.DBHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	fs.StringVar(&cfg.DBPort, "db-port", envString("POSTGRES_PORT", "5432"), "Database port")
	fs.StringVar(&cfg.DBUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	fs.StringVar(&cfg.DBPass, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	fs.StringVar(&cfg.DBName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	fs.StringVar(&cfg.Store, "store", envString("STORE", StorePostgres), "Persistence backend (postgres or memory)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HS256 secret for access tokens (prefer env)")
	fs.Float64Var(&cfg.PriorWeight, "prior-weight", envFloat("PRIOR_WEIGHT", DefaultPriorWeight), "Bayesian prior weight in votes")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", envDuration("CACHE_TTL", 5*time.Second), "Round list cache TTL (0 disables)")
	fs.StringVar(&cfg.NotifyPrefix, "notify-prefix", envString("NOTIFY_PREFIX", "rushvote."), "LISTEN/NOTIFY channel prefix")
	fs.StringVar(&cfg.LogLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", envString("LOG_FORMAT", "text"), "Log format (text or json)")
	seed := fs.String("seed-pnms", os.Getenv("SEED_PNMS"), "Comma-separated pnm ids known to the memory store")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	ids, err := parseIDs(*seed)
	if err != nil {
		return Config{}, fmt.Errorf("invalid seed pnms: %w", err)
	}
	cfg.SeedPnms = ids

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store == StorePostgres && (c.DBHost == "" || c.DBName == "") {
		return errors.New("POSTGRES_HOST and POSTGRES_DB are required for the postgres store")
	}
	if c.PriorWeight <= 0 {
		return errors.New("prior weight must be positive")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	return nil
}

func (c Config) DBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func parseIDs(list string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := uuid.Parse(field)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", field, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
