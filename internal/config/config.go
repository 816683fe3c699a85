package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dderrors "github.com/hpungsan/diarydigest/internal/errors"
)

// APIKeyEnv is the environment variable consulted before Config.APIKey.
const APIKeyEnv = "OPENAI_API_KEY"

// Output formats for summary artifacts.
const (
	OutputText = "text"
	OutputHTML = "html"
)

// Config holds application configuration.
type Config struct {
	// Model is the chat model the assistant is created with.
	Model string `json:"model"`

	// APIKey authenticates against the remote agent API.
	// OPENAI_API_KEY takes precedence when set.
	APIKey string `json:"api_key,omitempty"`

	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string `json:"base_url,omitempty"`

	// PollIntervalMS is the fixed delay between run status checks.
	PollIntervalMS int `json:"poll_interval_ms"`

	// RunTimeoutSeconds bounds how long a run may take to reach a terminal state.
	RunTimeoutSeconds int `json:"run_timeout_seconds"`

	// DateFormat is a Go time layout used in transcript headers and artifact titles.
	DateFormat string `json:"date_format"`

	// OutputDir is where summary artifacts are written.
	// Empty means <baseDir>/summaries.
	OutputDir string `json:"output_dir,omitempty"`

	// OutputFormat is "text" or "html".
	OutputFormat string `json:"output_format"`

	// DateRange is the default range as YYYYMMDD integers: [] means today,
	// [d] a single day, [start, end] an inclusive range.
	DateRange []int `json:"date_range,omitempty"`

	// Prompt forces a named template from prompts.yaml, bypassing the active flag.
	Prompt string `json:"prompt,omitempty"`

	// SaveUsageStats appends token usage for every completed run to the usage log.
	SaveUsageStats bool `json:"save_usage_stats,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFile is the rotated application log, relative to <baseDir>/logs.
	LogFile string `json:"log_file"`

	// LogMaxSizeMB is the size at which LogFile and UsageLogFile are rotated.
	LogMaxSizeMB int `json:"log_max_size_mb"`

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups int `json:"log_max_backups"`

	// UsageLogFile receives one line per completed run, relative to <baseDir>/logs.
	UsageLogFile string `json:"usage_log_file"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:             "gpt-4o-mini",
		PollIntervalMS:    1000,
		RunTimeoutSeconds: 300,
		DateFormat:        "2006-01-02",
		OutputFormat:      OutputText,
		LogLevel:          "info",
		LogFile:           "diarydigest.log",
		LogMaxSizeMB:      1,
		LogMaxBackups:     3,
		UsageLogFile:      "openai_usage.log",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.diarydigest.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, dderrors.NewConfig(fmt.Sprintf("%s: %v", configPath, err))
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path, applies defaults and validates.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except DateRange which the overlay replaces wholesale.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Model = firstString(overlay.Model, base.Model)
	result.APIKey = firstString(overlay.APIKey, base.APIKey)
	result.BaseURL = firstString(overlay.BaseURL, base.BaseURL)
	result.DateFormat = firstString(overlay.DateFormat, base.DateFormat)
	result.OutputDir = firstString(overlay.OutputDir, base.OutputDir)
	result.OutputFormat = firstString(overlay.OutputFormat, base.OutputFormat)
	result.Prompt = firstString(overlay.Prompt, base.Prompt)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFile = firstString(overlay.LogFile, base.LogFile)
	result.UsageLogFile = firstString(overlay.UsageLogFile, base.UsageLogFile)

	// Ints: overlay wins if non-zero, else base
	result.PollIntervalMS = firstInt(overlay.PollIntervalMS, base.PollIntervalMS)
	result.RunTimeoutSeconds = firstInt(overlay.RunTimeoutSeconds, base.RunTimeoutSeconds)
	result.LogMaxSizeMB = firstInt(overlay.LogMaxSizeMB, base.LogMaxSizeMB)
	result.LogMaxBackups = firstInt(overlay.LogMaxBackups, base.LogMaxBackups)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.SaveUsageStats = base.SaveUsageStats || overlay.SaveUsageStats

	result.DateRange = base.DateRange
	if len(overlay.DateRange) > 0 {
		result.DateRange = append([]int(nil), overlay.DateRange...)
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Validate rejects values that cannot drive a job.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return dderrors.NewConfig("model must not be empty")
	}
	if c.PollIntervalMS < 0 {
		return dderrors.NewConfig("poll_interval_ms must be >= 0")
	}
	if c.RunTimeoutSeconds < 0 {
		return dderrors.NewConfig("run_timeout_seconds must be >= 0")
	}
	if c.OutputFormat != OutputText && c.OutputFormat != OutputHTML {
		return dderrors.NewConfig(fmt.Sprintf("output_format must be %q or %q, got %q", OutputText, OutputHTML, c.OutputFormat))
	}
	if len(c.DateRange) > 2 {
		return dderrors.NewConfig("date_range accepts at most two dates")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return dderrors.NewConfig(fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}
	return nil
}

// PollInterval returns the run status polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RunTimeout returns the per-run terminal-state timeout.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// ResolveAPIKey returns the API key, environment variable first.
func (c *Config) ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key, nil
	}
	return "", dderrors.NewConfig(fmt.Sprintf("no API key: set %s or api_key in config.json", APIKeyEnv))
}

// ResolveOutputDir returns OutputDir, defaulting to <baseDir>/summaries.
func (c *Config) ResolveOutputDir(baseDir string) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(baseDir, "summaries")
}

func firstString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
