package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "smartkitchen"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SMARTKITCHEN_DB_DSN"
	EnvDBHost = "SMARTKITCHEN_DB_HOST"
	EnvDBUser = "SMARTKITCHEN_DB_USER"
	EnvDBName = "SMARTKITCHEN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Alerting     AlertingConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTKITCHEN_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTKITCHEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SMARTKITCHEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMARTKITCHEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTKITCHEN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTKITCHEN_DB_DSN"`
	Driver string `envconfig:"SMARTKITCHEN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTKITCHEN_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTKITCHEN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTKITCHEN_DB_USER"`
	LegacyPassword string `envconfig:"SMARTKITCHEN_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTKITCHEN_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTKITCHEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTKITCHEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTKITCHEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTKITCHEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTKITCHEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTKITCHEN_REDIS_URL"`
	Address      string        `envconfig:"SMARTKITCHEN_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTKITCHEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTKITCHEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTKITCHEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTKITCHEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTKITCHEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTKITCHEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTKITCHEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SMARTKITCHEN_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SMARTKITCHEN_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	InventoryTopic        string `envconfig:"SMARTKITCHEN_PUBSUB_INVENTORY_TOPIC" default:"sk-inventory-events"`
	InventorySubscription string `envconfig:"SMARTKITCHEN_PUBSUB_INVENTORY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SMARTKITCHEN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SMARTKITCHEN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SMARTKITCHEN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SMARTKITCHEN_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SMARTKITCHEN_CRON_LOCK_TTL" default:"2h"`
}

type RateLimitConfig struct {
	WriteWindow time.Duration `envconfig:"SMARTKITCHEN_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteLimit  int           `envconfig:"SMARTKITCHEN_RATE_LIMIT_WRITE_LIMIT" default:"120"`
}

type AlertingConfig struct {
	// RestockTarget scales the suggested restock amount relative to the
	// minimum-stock threshold. 1.0 restocks back up to the threshold.
	RestockTargetFactor float64 `envconfig:"SMARTKITCHEN_ALERT_RESTOCK_TARGET_FACTOR" default:"1.0"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
