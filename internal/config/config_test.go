package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/diarydigest/internal/errors"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Model != def.Model {
		t.Fatalf("Model = %q, want %q", cfg.Model, def.Model)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("PollInterval() = %v, want 1s", cfg.PollInterval())
	}
	if cfg.RunTimeout() != 5*time.Minute {
		t.Fatalf("RunTimeout() = %v, want 5m", cfg.RunTimeout())
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"model": "gpt-4o", "poll_interval_ms": 250, "output_format": "html", "date_range": [20250301, 20250307]}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("PollInterval() = %v", cfg.PollInterval())
	}
	if cfg.OutputFormat != OutputHTML {
		t.Fatalf("OutputFormat = %q", cfg.OutputFormat)
	}
	if len(cfg.DateRange) != 2 || cfg.DateRange[1] != 20250307 {
		t.Fatalf("DateRange = %v", cfg.DateRange)
	}
	// Untouched fields keep defaults
	if cfg.DateFormat != "2006-01-02" {
		t.Fatalf("DateFormat = %q", cfg.DateFormat)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := Load(tmpDir)
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("Load() error = %v, want CONFIG_ERROR", err)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"negative poll interval", `{"poll_interval_ms": -1}`},
		{"negative timeout", `{"run_timeout_seconds": -5}`},
		{"unknown output format", `{"output_format": "pdf"}`},
		{"too many dates", `{"date_range": [20250101, 20250102, 20250103]}`},
		{"unknown log level", `{"log_level": "chatty"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(tt.json), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := Load(tmpDir)
			if !errors.Is(err, errors.ErrConfig) {
				t.Fatalf("Load() error = %v, want CONFIG_ERROR", err)
			}
		})
	}
}

func TestResolveAPIKey_EnvironmentFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "from-config"

	t.Setenv(APIKeyEnv, "from-env")
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "from-env" {
		t.Fatalf("key = %q, want from-env", key)
	}

	t.Setenv(APIKeyEnv, "")
	key, err = cfg.ResolveAPIKey()
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "from-config" {
		t.Fatalf("key = %q, want from-config", key)
	}
}

func TestResolveAPIKey_Missing(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg := DefaultConfig()

	_, err := cfg.ResolveAPIKey()
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("ResolveAPIKey() error = %v, want CONFIG_ERROR", err)
	}
}

func TestResolveOutputDir(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ResolveOutputDir("/base"); got != filepath.Join("/base", "summaries") {
		t.Fatalf("ResolveOutputDir() = %q", got)
	}
	cfg.OutputDir = "/elsewhere"
	if got := cfg.ResolveOutputDir("/base"); got != "/elsewhere" {
		t.Fatalf("ResolveOutputDir() = %q", got)
	}
}

func TestMerge_DisabledTools(t *testing.T) {
	base := &Config{DisabledTools: []string{"diary_ingest", " diary_list "}}
	overlay := &Config{DisabledTools: []string{"diary_list", "diary_context"}}

	merged := Merge(base, overlay)

	want := []string{"diary_ingest", "diary_list", "diary_context"}
	if len(merged.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", merged.DisabledTools, want)
	}
	for i := range want {
		if merged.DisabledTools[i] != want[i] {
			t.Fatalf("DisabledTools[%d] = %q, want %q", i, merged.DisabledTools[i], want[i])
		}
	}
}

func TestMerge_SaveUsageStats(t *testing.T) {
	merged := Merge(DefaultConfig(), &Config{SaveUsageStats: true})
	if !merged.SaveUsageStats {
		t.Fatal("SaveUsageStats should be true when overlay enables it")
	}
}
