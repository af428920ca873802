package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dispatch modes.
const (
	DispatchLocal = "local"
	DispatchHTTP  = "http"
	DispatchNATS  = "nats"
)

// DefaultEnvFile is read by LoadEnvFile when no path is given.
const DefaultEnvFile = ".env"

// Config captures environment driven configuration values for the prayer-debt service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	CalcVersion       string
	Madhab            string
	MaxProgressAmount int

	EncryptionKey  string
	EncryptionSalt string
	WebhookSecret  string

	Dispatch         string
	DispatchWorkers  int
	CalculatorURL    string
	CalculatorAPIKey string
	PublicURL        string
	NATSURL          string
	NATSSubject      string
	RedisAddr        string
	RedisPassword    string
	LockTTL          time.Duration
	SnapshotCacheTTL time.Duration
	LogLevel         string
}

// WebhookURL is the callback target handed to external calculators.
func (c Config) WebhookURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/webhooks/prayer-debt"
}

// LoadEnvFile seeds the process environment from a dotenv file. Variables
// already set win. A missing default file is not an error; a missing
// explicit file is.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Defaults apply to every optional field. Missing required values and
// invalid values are collected and reported together, one error per
// category.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          4000,
		SQLiteDSN:         "prayerdebt.db",
		CalcVersion:       "1.0.0",
		Madhab:            "hanafi",
		MaxProgressAmount: 500,
		EncryptionSalt:    "prayer-debt",
		Dispatch:          DispatchLocal,
		DispatchWorkers:   2,
		PublicURL:         "http://localhost:4000",
		NATSURL:           "nats://127.0.0.1:4222",
		NATSSubject:       "prayerdebt.calculations",
		LockTTL:           10 * time.Second,
		SnapshotCacheTTL:  30 * time.Second,
		LogLevel:          "info",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	positiveInt := func(key string, dst *int) {
		if value := env(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration, allowZero bool) {
		if value := env(key); value != "" {
			d, err := time.ParseDuration(value)
			if err != nil || d < 0 || (d == 0 && !allowZero) {
				invalid = append(invalid, key)
				return
			}
			*dst = d
		}
	}
	str := func(key string, dst *string) {
		if value := env(key); value != "" {
			*dst = value
		}
	}

	positiveInt("PRAYERDEBT_HTTP_PORT", &cfg.HTTPPort)
	str("PRAYERDEBT_SQLITE_DSN", &cfg.SQLiteDSN)
	str("PRAYERDEBT_CALC_VERSION", &cfg.CalcVersion)

	if madhab := strings.ToLower(env("PRAYERDEBT_MADHAB")); madhab != "" {
		if madhab != "hanafi" && madhab != "shafii" {
			invalid = append(invalid, "PRAYERDEBT_MADHAB")
		} else {
			cfg.Madhab = madhab
		}
	}

	positiveInt("PRAYERDEBT_MAX_PROGRESS_AMOUNT", &cfg.MaxProgressAmount)
	str("PRAYERDEBT_ENCRYPTION_KEY", &cfg.EncryptionKey)
	str("PRAYERDEBT_ENCRYPTION_SALT", &cfg.EncryptionSalt)
	str("PRAYERDEBT_WEBHOOK_SECRET", &cfg.WebhookSecret)

	if mode := strings.ToLower(env("PRAYERDEBT_DISPATCH")); mode != "" {
		switch mode {
		case DispatchLocal, DispatchHTTP, DispatchNATS:
			cfg.Dispatch = mode
		default:
			invalid = append(invalid, "PRAYERDEBT_DISPATCH")
		}
	}
	positiveInt("PRAYERDEBT_DISPATCH_WORKERS", &cfg.DispatchWorkers)
	str("PRAYERDEBT_CALCULATOR_URL", &cfg.CalculatorURL)
	str("PRAYERDEBT_CALCULATOR_API_KEY", &cfg.CalculatorAPIKey)
	str("PRAYERDEBT_PUBLIC_URL", &cfg.PublicURL)
	str("PRAYERDEBT_NATS_URL", &cfg.NATSURL)
	str("PRAYERDEBT_NATS_SUBJECT", &cfg.NATSSubject)
	str("PRAYERDEBT_REDIS_ADDR", &cfg.RedisAddr)
	str("PRAYERDEBT_REDIS_PASSWORD", &cfg.RedisPassword)
	duration("PRAYERDEBT_LOCK_TTL", &cfg.LockTTL, false)
	duration("PRAYERDEBT_SNAPSHOT_CACHE_TTL", &cfg.SnapshotCacheTTL, true)

	if level := strings.ToLower(env("PRAYERDEBT_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "PRAYERDEBT_LOG_LEVEL")
		}
	}

	if cfg.Dispatch == DispatchHTTP {
		if cfg.CalculatorURL == "" {
			missing = append(missing, "PRAYERDEBT_CALCULATOR_URL")
		}
		if cfg.CalculatorAPIKey == "" {
			missing = append(missing, "PRAYERDEBT_CALCULATOR_API_KEY")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
