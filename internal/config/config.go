package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot store kinds.
const (
	StorePostgres = "pg"
	StoreWAL      = "wal"
	StoreNone     = "none"
)

// Config holds all application configuration.
// Values come from defaults, then the optional CONFIG_FILE, then environment variables.
type Config struct {
	HTTPPort      string `yaml:"http_port"`
	AdminAPIKey   string `yaml:"admin_api_key"`
	DatabaseURL   string `yaml:"database_url"`
	SnapshotStore string `yaml:"snapshot_store"`
	WALDir        string `yaml:"wal_dir"`

	SnapshotInterval    time.Duration `yaml:"snapshot_interval"`
	QuoteWorkerInterval time.Duration `yaml:"quote_worker_interval"`

	CoinGeckoURL      string            `yaml:"coingecko_url"`
	CoinGeckoDelay    time.Duration     `yaml:"coingecko_delay"`
	CoinGeckoRetryMax int               `yaml:"coingecko_retry_max"`
	CoinGeckoRate     float64           `yaml:"coingecko_rate"`
	QuoteCurrency     string            `yaml:"quote_currency"`
	QuoteSymbols      map[string]string `yaml:"quote_symbols"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ExportXLSXPath        string `yaml:"export_xlsx_path"`
	GoogleSheetID         string `yaml:"google_sheet_id"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:            "8080",
		SnapshotStore:       StoreWAL,
		WALDir:              "data/wal",
		SnapshotInterval:    5 * time.Minute,
		QuoteWorkerInterval: 1 * time.Hour,
		CoinGeckoURL:        "https://api.coingecko.com/api/v3",
		CoinGeckoDelay:      6 * time.Second,
		CoinGeckoRetryMax:   5,
		CoinGeckoRate:       0.5,
		QuoteCurrency:       "usd",
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load builds the configuration. A missing CONFIG_FILE is an error; invalid
// individual env values fall back to the previous value with a warning.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = envOrDefault("HTTP_PORT", cfg.HTTPPort)
	cfg.AdminAPIKey = envOrDefault("ADMIN_API_KEY", cfg.AdminAPIKey)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.SnapshotStore = strings.ToLower(envOrDefault("SNAPSHOT_STORE", cfg.SnapshotStore))
	cfg.WALDir = envOrDefault("WAL_DIR", cfg.WALDir)
	cfg.SnapshotInterval = envOrDefaultDuration("SNAPSHOT_INTERVAL", cfg.SnapshotInterval)
	cfg.QuoteWorkerInterval = envOrDefaultDuration("QUOTE_WORKER_INTERVAL", cfg.QuoteWorkerInterval)
	cfg.CoinGeckoURL = envOrDefault("COINGECKO_URL", cfg.CoinGeckoURL)
	cfg.CoinGeckoDelay = envOrDefaultDuration("COINGECKO_DELAY", cfg.CoinGeckoDelay)
	cfg.CoinGeckoRetryMax = envOrDefaultInt("COINGECKO_RETRY_MAX", cfg.CoinGeckoRetryMax)
	cfg.CoinGeckoRate = envOrDefaultFloat("COINGECKO_RATE", cfg.CoinGeckoRate)
	cfg.QuoteCurrency = envOrDefault("QUOTE_CURRENCY", cfg.QuoteCurrency)
	cfg.QuoteSymbols = envOrDefaultSymbols("QUOTE_SYMBOLS", cfg.QuoteSymbols)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.ExportXLSXPath = envOrDefault("EXPORT_XLSX_PATH", cfg.ExportXLSXPath)
	cfg.GoogleSheetID = envOrDefault("GOOGLE_SHEET_ID", cfg.GoogleSheetID)
	cfg.GoogleCredentialsJSON = envOrDefault("GOOGLE_CREDENTIALS_JSON", cfg.GoogleCredentialsJSON)

	if !slices.Contains([]string{StorePostgres, StoreWAL, StoreNone}, cfg.SnapshotStore) {
		return Config{}, fmt.Errorf("unknown snapshot store %q", cfg.SnapshotStore)
	}
	if cfg.SnapshotStore == StorePostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("snapshot store %q requires DATABASE_URL", StorePostgres)
	}
	if cfg.GoogleSheetID != "" && cfg.GoogleCredentialsJSON == "" {
		slog.Warn("GOOGLE_SHEET_ID set without GOOGLE_CREDENTIALS_JSON, sheets export disabled")
	}

	return cfg, nil
}

// ParseSymbols parses "BTC=bitcoin,ETH=ethereum" into a symbol -> coin ID map.
func ParseSymbols(s string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symbol, id, ok := strings.Cut(pair, "=")
		symbol, id = strings.TrimSpace(symbol), strings.TrimSpace(id)
		if !ok || symbol == "" || id == "" {
			return nil, fmt.Errorf("invalid symbol mapping %q", pair)
		}
		result[symbol] = id
	}
	return result, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultSymbols(key string, defaultVal map[string]string) map[string]string {
	if v := os.Getenv(key); v != "" {
		m, err := ParseSymbols(v)
		if err != nil {
			slog.Warn("invalid symbol mapping env var, using default", "key", key, "value", v, "error", err)
			return defaultVal
		}
		return m
	}
	return defaultVal
}
