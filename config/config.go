// config/config.go - Application configuration (.env + config.yaml + environment)
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the service
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// DatabaseConfig selects the driver and connection parameters.
// URL wins over the individual host/port/user fields.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RateLimitConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxRequests int  `mapstructure:"max_requests"`
	WindowMs    int  `mapstructure:"window_ms"`
}

// ChallengeConfig carries the daily challenge policy knobs
type ChallengeConfig struct {
	Timezone          string        `mapstructure:"timezone"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	PassingScore      int           `mapstructure:"passing_score"`
	IntermediateLevel int           `mapstructure:"intermediate_level"`
	AdvancedLevel     int           `mapstructure:"advanced_level"`
	PrizeSchedule     string        `mapstructure:"prize_schedule"`
	LeaderboardTTL    time.Duration `mapstructure:"leaderboard_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// envBindings maps config keys to the environment variable names operators use
var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"app.port":                     "PORT",
	"app.log_level":                "LOG_LEVEL",
	"app.cors_origins":             "CORS_ORIGINS",
	"database.driver":              "DB_DRIVER",
	"database.url":                 "DATABASE_URL",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.name":                "DB_NAME",
	"database.sslmode":             "DB_SSLMODE",
	"database.sqlite_path":         "SQLITE_PATH",
	"auth.jwt_secret":              "JWT_SECRET",
	"auth.token_ttl":               "TOKEN_TTL",
	"rate_limit.enabled":           "RATE_LIMIT_ENABLED",
	"rate_limit.max_requests":      "RATE_LIMIT_MAX_REQUESTS",
	"rate_limit.window_ms":         "RATE_LIMIT_WINDOW_MS",
	"challenge.timezone":           "CHALLENGE_TIMEZONE",
	"challenge.max_attempts":       "CHALLENGE_MAX_ATTEMPTS",
	"challenge.passing_score":      "CHALLENGE_PASSING_SCORE",
	"challenge.intermediate_level": "TIER_INTERMEDIATE_LEVEL",
	"challenge.advanced_level":     "TIER_ADVANCED_LEVEL",
	"challenge.prize_schedule":     "PRIZE_SCHEDULE",
	"challenge.leaderboard_ttl":    "LEADERBOARD_CACHE_TTL",
	"redis.addr":                   "REDIS_ADDR",
	"redis.password":               "REDIS_PASSWORD",
	"redis.db":                     "REDIS_DB",
	"nats.url":                     "NATS_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.cors_origins", "http://localhost:3000")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "lingoquest")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "./data/lingoquest.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window_ms", 900000)

	v.SetDefault("challenge.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("challenge.max_attempts", 3)
	v.SetDefault("challenge.passing_score", 75)
	v.SetDefault("challenge.intermediate_level", 6)
	v.SetDefault("challenge.advanced_level", 16)
	v.SetDefault("challenge.prize_schedule", "5 0 * * *")
	v.SetDefault("challenge.leaderboard_ttl", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")
}

// Load reads .env (if present), an optional YAML file and the environment.
// configPath may be empty, in which case ./config.yaml and ./config/config.yaml are tried.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Validate checks the settings the service cannot run without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set. Generate one with: openssl rand -base64 64")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	// no UTC fallback
	if _, err := time.LoadLocation(c.Challenge.Timezone); err != nil {
		return fmt.Errorf("CHALLENGE_TIMEZONE %q: %w", c.Challenge.Timezone, err)
	}
	if c.Challenge.MaxAttempts < 1 {
		return errors.New("CHALLENGE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Challenge.PassingScore < 0 || c.Challenge.PassingScore > 100 {
		return errors.New("CHALLENGE_PASSING_SCORE must be within 0-100")
	}
	if c.Challenge.IntermediateLevel < 1 || c.Challenge.AdvancedLevel <= c.Challenge.IntermediateLevel {
		return errors.New("tier levels must satisfy 1 <= TIER_INTERMEDIATE_LEVEL < TIER_ADVANCED_LEVEL")
	}
	return nil
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
