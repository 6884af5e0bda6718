package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	CampgroundID       string
	DataAPIURL         string
	DataAPITimeout     time.Duration
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	SessionTTL         time.Duration
	InventoryTTL       time.Duration
	RateLimitPerSec    float64
	RateLimitBurst     int
	Calendar           CalendarConfig
}

// CalendarConfig holds board defaults. They may come from the YAML file
// named by CALENDAR_CONFIG; environment variables win over the file.
type CalendarConfig struct {
	WindowDays   int      `yaml:"window_days"`
	HoldMinutes  int      `yaml:"hold_minutes"`
	Currency     string   `yaml:"currency"`
	NightlyCents int64    `yaml:"nightly_cents"`
	WeekendCents int64    `yaml:"weekend_surcharge_cents"`
	DepositRule  string   `yaml:"deposit_rule"`
	Sites        []string `yaml:"sites"`
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		CampgroundID:     getEnv("CAMPGROUND_ID", "default"),
		DataAPIURL:       strings.TrimRight(os.Getenv("DATA_API_URL"), "/"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "campcal"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "campcal-calendar"),
		Calendar: CalendarConfig{
			WindowDays:   14,
			HoldMinutes:  15,
			Currency:     "USD",
			DepositRule:  "first_night",
			NightlyCents: 5000,
		},
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if path := os.Getenv("CALENDAR_CONFIG"); path != "" {
		if err := loadCalendarFile(path, &cfg.Calendar); err != nil {
			return Config{}, err
		}
	}

	var err error
	if cfg.DataAPITimeout, err = parseDurationEnv("DATA_API_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.InventoryTTL, err = parseDurationEnv("INVENTORY_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Calendar.WindowDays, err = parseIntEnv("WINDOW_DAYS", cfg.Calendar.WindowDays); err != nil {
		return Config{}, err
	}
	if cfg.Calendar.HoldMinutes, err = parseIntEnv("HOLD_MINUTES", cfg.Calendar.HoldMinutes); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSec, err = parseFloatEnv("RATE_LIMIT_PER_SEC", 10); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.Calendar.WindowDays <= 0 || cfg.Calendar.WindowDays > 366 {
		return Config{}, fmt.Errorf("WINDOW_DAYS must be between 1 and 366, got %d", cfg.Calendar.WindowDays)
	}
	if cfg.Calendar.HoldMinutes <= 0 {
		return Config{}, fmt.Errorf("HOLD_MINUTES must be positive, got %d", cfg.Calendar.HoldMinutes)
	}
	if cfg.Calendar.Currency == "" {
		cfg.Calendar.Currency = "USD"
	}
	return cfg, nil
}

// UsesDataAPI reports whether the calendar talks to a remote data layer
// rather than the in-process one.
func (c Config) UsesDataAPI() bool { return c.DataAPIURL != "" }

func loadCalendarFile(path string, into *CalendarConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open CALENDAR_CONFIG: %w", err)
	}
	defer f.Close()

	var file struct {
		Calendar CalendarConfig `yaml:"calendar"`
	}
	file.Calendar = *into
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decode CALENDAR_CONFIG: %w", err)
	}
	*into = file.Calendar
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return f, nil
}
