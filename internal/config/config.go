// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every setting of the service.
type Config struct {
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	ServerRunAddress string        `envconfig:"SERVER_RUN_ADDRESS" default:"0.0.0.0:8080"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURI   string `envconfig:"DATABASE_URI" default:"host=db user=postgres password=password dbname=ifcoins sslmode=disable"`
	// Empty address keeps the sign-in cooldown state in process memory.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"3h"`

	InstitutionDomain string   `envconfig:"INSTITUTION_DOMAIN" default:"ifpr.edu.br"`
	StudentSubdomain  string   `envconfig:"STUDENT_SUBDOMAIN" default:"estudantes"`
	AdminEmails       []string `envconfig:"ADMIN_EMAILS" default:"paulocauan39@gmail.com"`

	TeacherGrantLimit int64 `envconfig:"TEACHER_GRANT_LIMIT" default:"50"`
	AdminGrantLimit   int64 `envconfig:"ADMIN_GRANT_LIMIT" default:"1000"`
	StartingCoins     int64 `envconfig:"STARTING_COINS" default:"0"`

	BonusScope    string `envconfig:"BONUS_SCOPE" default:"events"`
	OverlapPolicy string `envconfig:"OVERLAP_POLICY" default:"max"`

	SignInMaxFailures int           `envconfig:"SIGNIN_MAX_FAILURES" default:"5"`
	SignInCooldown    time.Duration `envconfig:"SIGNIN_COOLDOWN" default:"5m"`
	SignUpMaxAttempts int           `envconfig:"SIGNUP_MAX_ATTEMPTS" default:"3"`
	SignUpCooldown    time.Duration `envconfig:"SIGNUP_COOLDOWN" default:"10m"`

	ReadRetryAttempts int           `envconfig:"READ_RETRY_ATTEMPTS" default:"3"`
	ReadRetryBackoff  time.Duration `envconfig:"READ_RETRY_BACKOFF" default:"100ms"`

	IdempotencyTTL           time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	IdempotencyPurgeSchedule string        `envconfig:"IDEMPOTENCY_PURGE_SCHEDULE" default:"@hourly"`

	RankingDefaultLimit int `envconfig:"RANKING_DEFAULT_LIMIT" default:"50"`
}

// Load reads the optional .env file and maps the environment onto Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment and default values")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.BonusScope = strings.ToLower(strings.TrimSpace(c.BonusScope))
	c.OverlapPolicy = strings.ToLower(strings.TrimSpace(c.OverlapPolicy))
	c.InstitutionDomain = strings.ToLower(strings.TrimSpace(c.InstitutionDomain))
	c.StudentSubdomain = strings.ToLower(strings.TrimSpace(c.StudentSubdomain))

	emails := c.AdminEmails[:0]
	for _, e := range c.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	c.AdminEmails = emails
}

// Validate checks values that envconfig cannot express with tags.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q", DriverPostgres, DriverMemory))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be > 0"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be > 0"))
	}
	if c.InstitutionDomain == "" {
		errs = append(errs, errors.New("INSTITUTION_DOMAIN must not be empty"))
	}
	if c.TeacherGrantLimit < 1 || c.AdminGrantLimit < 1 {
		errs = append(errs, errors.New("grant limits must be >= 1"))
	}
	if c.StartingCoins < 0 {
		errs = append(errs, errors.New("STARTING_COINS must be >= 0"))
	}

	switch c.BonusScope {
	case "events", "all", "none":
	default:
		errs = append(errs, fmt.Errorf("BONUS_SCOPE %q is not one of events, all, none", c.BonusScope))
	}
	switch c.OverlapPolicy {
	case "max", "first":
	default:
		errs = append(errs, fmt.Errorf("OVERLAP_POLICY %q is not one of max, first", c.OverlapPolicy))
	}

	if c.SignInMaxFailures < 1 || c.SignUpMaxAttempts < 1 {
		errs = append(errs, errors.New("SIGNIN_MAX_FAILURES and SIGNUP_MAX_ATTEMPTS must be >= 1"))
	}
	if c.SignInCooldown <= 0 || c.SignUpCooldown <= 0 {
		errs = append(errs, errors.New("cooldown durations must be > 0"))
	}
	if c.ReadRetryAttempts < 1 {
		errs = append(errs, errors.New("READ_RETRY_ATTEMPTS must be >= 1"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be > 0"))
	}
	if c.RankingDefaultLimit < 1 {
		errs = append(errs, errors.New("RANKING_DEFAULT_LIMIT must be >= 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
