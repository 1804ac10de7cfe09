package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

const DefaultPath = "fibscan.yaml"

// Journal backends
const (
	JournalBunt   = "buntdb"
	JournalSQLite = "sqlite"
)

type ExchangeConfig struct {
	Market         string        `yaml:"market"` // futures or spot
	APIKey         string        `yaml:"api_key"`
	APISecret      string        `yaml:"api_secret"`
	Testnet        bool          `yaml:"testnet"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ScannerConfig struct {
	core.ScanConfig `yaml:",inline"`
	Workers         int           `yaml:"workers"`
	StopTimeout     time.Duration `yaml:"stop_timeout"`
}

type StorageConfig struct {
	Path        string `yaml:"path"`
	Journal     string `yaml:"journal"`
	JournalPath string `yaml:"journal_path"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Release bool   `yaml:"release"`
}

type HeadlessConfig struct {
	DrainInterval    time.Duration `yaml:"drain_interval"`
	LogRetentionDays int           `yaml:"log_retention_days"`
	PurgeSchedule    string        `yaml:"purge_schedule"`
}

// Config holds all application configuration
type Config struct {
	Exchange ExchangeConfig        `yaml:"exchange"`
	Scanner  ScannerConfig         `yaml:"scanner"`
	Telegram core.TelegramSettings `yaml:"telegram"`
	Storage  StorageConfig         `yaml:"storage"`
	API      APIConfig             `yaml:"api"`
	Headless HeadlessConfig        `yaml:"headless"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Market:         "futures",
			RequestTimeout: 30 * time.Second,
		},
		Scanner: ScannerConfig{
			ScanConfig: core.ScanConfig{
				QuoteSuffix: "USDT",
				MinVolume:   10_000_000,
				PivotPeriod: 10,
				Timeframe1:  "15 minutes",
				Timeframe2:  "1 hour",
				WaitSeconds: 60,
			},
			Workers:     5,
			StopTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path:        "fibscan.db",
			Journal:     JournalBunt,
			JournalPath: "fibscan_journal.db",
		},
		API: APIConfig{
			Listen:  ":8080",
			Release: true,
		},
		Headless: HeadlessConfig{
			DrainInterval:    time.Minute,
			LogRetentionDays: 30,
			PurgeSchedule:    "@daily",
		},
	}
}

// Load reads config from a YAML file over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_ADMIN_IDS"); v != "" {
		admins, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ADMIN_IDS: %w", err)
		}
		c.Telegram.Admins = admins
	}
	if v := os.Getenv("FIBSCAN_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	return nil
}

func parseIDs(value string) ([]int64, error) {
	fields := lo.Compact(lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))

	ids := make([]int64, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks the fields the application cannot start without
func (c *Config) Validate() error {
	var problems []string

	switch c.Exchange.Market {
	case "futures", "spot":
	default:
		problems = append(problems, fmt.Sprintf("exchange.market must be futures or spot, got %q", c.Exchange.Market))
	}
	if c.Scanner.Workers <= 0 {
		problems = append(problems, "scanner.workers must be positive")
	}
	if c.Scanner.PivotPeriod < 0 {
		problems = append(problems, "scanner.pivot_period must not be negative")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		problems = append(problems, "telegram.token is required when telegram is enabled")
	}
	if c.Storage.Path == "" {
		problems = append(problems, "storage.path is required")
	}
	switch c.Storage.Journal {
	case JournalBunt:
	case JournalSQLite:
		if c.Storage.JournalPath == "" {
			problems = append(problems, "storage.journal_path is required for the sqlite journal")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.journal must be %s or %s, got %q", JournalBunt, JournalSQLite, c.Storage.Journal))
	}
	if c.API.Enabled && c.API.Listen == "" {
		problems = append(problems, "api.listen is required when the api is enabled")
	}
	if c.Headless.DrainInterval <= 0 {
		problems = append(problems, "headless.drain_interval must be positive")
	}
	if c.Headless.LogRetentionDays < 0 {
		problems = append(problems, "headless.log_retention_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration as YAML, creating the directory when needed
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
