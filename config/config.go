package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dealscout/models"
)

type Config struct {
	DBPath      string
	DatabaseURL string
	LogLevel    string
	Scheduler   SchedulerConfig
	Fetch       FetchConfig
	Retry       RetryConfig
	SMTP        SMTPConfig
	Localities  []models.Locality
	Sources     map[string]*SourceConfig
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type FetchConfig struct {
	Workers           int
	PriceCeiling      float64
	RequestsPerMinute int
	ProxyURL          string
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SourceConfig describes one remote listing source. Built-in defaults can
// be overridden or extended by YAML files under config/sources.
type SourceConfig struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Enabled           bool   `yaml:"enabled"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getEnv("DB_PATH", "dealscout.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Fetch: FetchConfig{
			Workers:           getEnvInt("FETCH_WORKERS", 4),
			PriceCeiling:      getEnvFloat("PRICE_CEILING", 200000),
			RequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 10),
			ProxyURL:          os.Getenv("PROXY_URL"),
		},
		Retry: RetryConfig{
			MaxRetries: getEnvInt("RETRY_MAX", 3),
			BaseDelay:  time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
			Factor:     getEnvFloat("RETRY_FACTOR", 2),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Localities: parseLocalities(getEnv("TARGET_LOCALITIES",
			"Kokomo,IN;Logansport,IN;Indianapolis,IN;Fort Wayne,IN")),
		Sources: defaultSources(),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnabledSources returns the enabled sources in a stable order.
func (c *Config) EnabledSources() []*SourceConfig {
	ids := []string{"zillow", "realtytrac", "auction_com", "realtor_com"}
	var out []*SourceConfig
	for _, id := range ids {
		if src, ok := c.Sources[id]; ok && src.Enabled {
			out = append(out, src)
		}
	}
	for id, src := range c.Sources {
		if !src.Enabled || contains(ids, id) {
			continue
		}
		out = append(out, src)
	}
	return out
}

func defaultSources() map[string]*SourceConfig {
	return map[string]*SourceConfig{
		"zillow": {
			ID: "zillow", Name: "Zillow", BaseURL: "https://www.zillow.com",
			RequestsPerMinute: 10, Enabled: true,
		},
		"realtytrac": {
			ID: "realtytrac", Name: "RealtyTrac", BaseURL: "https://www.realtytrac.com",
			RequestsPerMinute: 10, Enabled: true,
		},
		"auction_com": {
			ID: "auction_com", Name: "Auction.com", BaseURL: "https://www.auction.com",
			RequestsPerMinute: 10, Enabled: true,
		},
		"realtor_com": {
			ID: "realtor_com", Name: "Realtor.com", BaseURL: "https://www.realtor.com",
			RequestsPerMinute: 10, Enabled: true,
		},
	}
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var src SourceConfig
		if err := yaml.Unmarshal(data, &src); err != nil {
			return err
		}
		if src.RequestsPerMinute == 0 {
			src.RequestsPerMinute = c.Fetch.RequestsPerMinute
		}

		c.Sources[src.ID] = &src
	}

	return nil
}

// parseLocalities reads "City,ST;City,ST" pairs. Entries missing a state
// keep an empty one.
func parseLocalities(s string) []models.Locality {
	var out []models.Locality
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ",", 2)
		loc := models.Locality{City: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			loc.State = strings.TrimSpace(parts[1])
		}
		out = append(out, loc)
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
