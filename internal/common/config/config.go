package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ResultsBackendPostgres = "postgres"
	ResultsBackendSupabase = "supabase"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"5000"`
		Origin string `env:"ORIGIN" envDefault:"*"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"postgres"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
		AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:""`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Supabase struct {
		URL            string        `env:"SUPABASE_URL,required"`
		AnonKey        string        `env:"SUPABASE_ANON_KEY" envDefault:""`
		ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY" envDefault:""`
		Timeout        time.Duration `env:"SUPABASE_TIMEOUT" envDefault:"20s"`
		RetryCount     int           `env:"SUPABASE_RETRY_COUNT" envDefault:"1"`
	}

	Telegram struct {
		BotToken string        `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
		Timeout  time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"15s"`
		// JSON list of {channel_id, channel_username, channel_name}; empty means built-in list.
		ChannelsJSON string        `env:"SUBSCRIPTION_CHANNELS_JSON" envDefault:""`
		InitDataTTL  time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Giveaway struct {
		Places         int           `env:"GIVEAWAY_PLACES" envDefault:"6"`
		AttemptBudget  int           `env:"GIVEAWAY_ATTEMPT_BUDGET" envDefault:"500"`
		OracleTimeout  time.Duration `env:"GIVEAWAY_ORACLE_TIMEOUT" envDefault:"15s"`
		LedgerTimeout  time.Duration `env:"GIVEAWAY_LEDGER_TIMEOUT" envDefault:"30s"`
		LockTTL        time.Duration `env:"GIVEAWAY_LOCK_TTL" envDefault:"5m"`
		LockWait       time.Duration `env:"GIVEAWAY_LOCK_WAIT" envDefault:"2m"`
		OrganizerIDs   []int64       `env:"GIVEAWAY_ORGANIZER_IDS" envSeparator:","`
		ResultsBackend string        `env:"GIVEAWAY_RESULTS_BACKEND" envDefault:"supabase"`
		NotifyWinners  bool          `env:"GIVEAWAY_NOTIFY_WINNERS" envDefault:"false"`
		MirrorTTL      time.Duration `env:"GIVEAWAY_MIRROR_TTL" envDefault:"10m"`
		StatsTTL       time.Duration `env:"GIVEAWAY_STATS_TTL" envDefault:"30s"`
	}

	Admin struct {
		JWTSecret string        `env:"ADMIN_JWT_SECRET" envDefault:""`
		TokenTTL  time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
	}

	Worker struct {
		Stream          string        `env:"JOBS_STREAM" envDefault:"gtm:jobs"`
		Group           string        `env:"JOBS_GROUP" envDefault:"gtm_workers"`
		Consumer        string        `env:"JOBS_CONSUMER" envDefault:"worker_1"`
		ReclaimInterval time.Duration `env:"JOBS_RECLAIM_INTERVAL" envDefault:"1m"`
		ReclaimMinIdle  time.Duration `env:"JOBS_RECLAIM_MIN_IDLE" envDefault:"2m"`
		JobTimeout      time.Duration `env:"JOBS_TIMEOUT" envDefault:"2m"`
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; production injects variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Giveaway.Places != 6 {
		return fmt.Errorf("GIVEAWAY_PLACES must be 6, got %d", c.Giveaway.Places)
	}
	if c.Giveaway.AttemptBudget <= 0 {
		return fmt.Errorf("GIVEAWAY_ATTEMPT_BUDGET must be > 0")
	}
	switch c.Giveaway.ResultsBackend {
	case ResultsBackendPostgres, ResultsBackendSupabase:
	default:
		return fmt.Errorf("unknown GIVEAWAY_RESULTS_BACKEND %q", c.Giveaway.ResultsBackend)
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseKey() == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY is required")
	}
	return nil
}

// SupabaseKey prefers the service-role key over the anon key.
func (c *Config) SupabaseKey() string {
	if c.Supabase.ServiceRoleKey != "" {
		return c.Supabase.ServiceRoleKey
	}
	return c.Supabase.AnonKey
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
