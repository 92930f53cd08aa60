package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Cache       CacheConfig     `toml:"cache"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger    BadgerConfig `toml:"badger"`
	BackupDir string       `toml:"backup_dir"` // Directory for on-demand database backups
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// CacheConfig controls the TTL cache in front of computed views
type CacheConfig struct {
	MarketOverviewTTL time.Duration `toml:"market_overview_ttl"` // TTL for the market overview cache entry (default: 1h)
}

// ScraperConfig controls the financial data scraper
type ScraperConfig struct {
	BaseURL      string        `toml:"base_url"`      // Source site base URL, symbol appended per request
	UserAgent    string        `toml:"user_agent"`    // User agent for page rendering
	RateLimit    time.Duration `toml:"rate_limit"`    // Minimum delay between page fetches
	PageTimeout  time.Duration `toml:"page_timeout"`  // Per-page rendering timeout
	RenderWait   time.Duration `toml:"render_wait"`   // Time to wait for JavaScript to render
	MaxRetries   int           `toml:"max_retries"`   // Retry attempts per symbol after the first failure
	Headless     bool          `toml:"headless"`      // Run the browser headless
	SymbolsFile  string        `toml:"symbols_file"`  // Optional CSV of symbols to scrape when none are supplied
	MaxSymbols   int           `toml:"max_symbols"`   // Safety cap on symbols per run (0 = unlimited)
}

// SchedulerConfig controls periodic scrape runs
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for analysis (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`    // Anthropic API key
	Model       string  `toml:"model"`      // Model for analysis (default: "claude-3-5-haiku-20241022")
	MaxTokens   int     `toml:"max_tokens"` // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`    // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"` // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"`
}

// LLMConfig selects the provider used for analysis
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "claude" or "gemini" (default: "claude")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in quaestus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			BackupDir: "./data/backups",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Cache: CacheConfig{
			MarketOverviewTTL: 1 * time.Hour,
		},
		Scraper: ScraperConfig{
			BaseURL:     "https://www.screener.in/company",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RateLimit:   2 * time.Second,
			PageTimeout: 45 * time.Second,
			RenderWait:  3 * time.Second,
			MaxRetries:  2,
			Headless:    true,
			MaxSymbols:  0,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,           // Disabled by default - user must explicitly opt-in
			Schedule: "0 0 18 * * 5",  // Fridays at 18:00 (cron format with seconds)
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			RateLimit:   "4s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: "claude",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("QUAESTUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("QUAESTUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("QUAESTUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("QUAESTUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if backupDir := os.Getenv("QUAESTUS_BACKUP_DIR"); backupDir != "" {
		config.Storage.BackupDir = backupDir
	}

	// Logging configuration
	if level := os.Getenv("QUAESTUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("QUAESTUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Cache configuration
	if ttl := os.Getenv("QUAESTUS_CACHE_MARKET_OVERVIEW_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.MarketOverviewTTL = d
		}
	}

	// Scraper configuration
	if baseURL := os.Getenv("QUAESTUS_SCRAPER_BASE_URL"); baseURL != "" {
		config.Scraper.BaseURL = baseURL
	}
	if userAgent := os.Getenv("QUAESTUS_SCRAPER_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if rateLimit := os.Getenv("QUAESTUS_SCRAPER_RATE_LIMIT"); rateLimit != "" {
		if d, err := time.ParseDuration(rateLimit); err == nil {
			config.Scraper.RateLimit = d
		}
	}
	if pageTimeout := os.Getenv("QUAESTUS_SCRAPER_PAGE_TIMEOUT"); pageTimeout != "" {
		if d, err := time.ParseDuration(pageTimeout); err == nil {
			config.Scraper.PageTimeout = d
		}
	}
	if renderWait := os.Getenv("QUAESTUS_SCRAPER_RENDER_WAIT"); renderWait != "" {
		if d, err := time.ParseDuration(renderWait); err == nil {
			config.Scraper.RenderWait = d
		}
	}
	if maxRetries := os.Getenv("QUAESTUS_SCRAPER_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Scraper.MaxRetries = mr
		}
	}
	if headless := os.Getenv("QUAESTUS_SCRAPER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Scraper.Headless = h
		}
	}
	if symbolsFile := os.Getenv("QUAESTUS_SCRAPER_SYMBOLS_FILE"); symbolsFile != "" {
		config.Scraper.SymbolsFile = symbolsFile
	}

	// Scheduler configuration
	if enabled := os.Getenv("QUAESTUS_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("QUAESTUS_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Gemini configuration
	if apiKey := os.Getenv("QUAESTUS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("QUAESTUS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("QUAESTUS_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("QUAESTUS_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("QUAESTUS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // QUAESTUS_ prefix takes priority
	}
	if model := os.Getenv("QUAESTUS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("QUAESTUS_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("QUAESTUS_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("QUAESTUS_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}

	// LLM provider configuration
	if provider := os.Getenv("QUAESTUS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
