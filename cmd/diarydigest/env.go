package main

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/diarydigest/internal/assistant"
	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/lifecycle"
	"github.com/hpungsan/diarydigest/internal/logging"
	"github.com/hpungsan/diarydigest/internal/mcp"
	"github.com/hpungsan/diarydigest/internal/ops"
	"github.com/hpungsan/diarydigest/internal/prompts"
	"github.com/hpungsan/diarydigest/internal/state"
	"github.com/hpungsan/diarydigest/internal/web"
)

// HomeEnv overrides the base directory.
const HomeEnv = "DIARYDIGEST_HOME"

// resolveBaseDir returns $DIARYDIGEST_HOME or ~/.diarydigest.
func resolveBaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".diarydigest"), nil
}

// envOptions replaces pieces of the environment in tests.
type envOptions struct {
	Gateway assistant.Gateway
	Stderr  io.Writer
	Now     func() time.Time
}

// appEnv is everything a command needs, opened once per process.
type appEnv struct {
	baseDir    string
	db         *sql.DB
	cfg        *config.Config
	logger     *slog.Logger
	store      *state.Store
	lifecycle  *lifecycle.Manager
	summarizer *ops.Summarizer
	closers    []io.Closer
}

// newEnv loads config and prompts, opens the database and logs, and wires
// the summarizer. A missing API key does not fail here; it surfaces as
// CONFIG_ERROR when a job first needs the assistant.
func newEnv(baseDir string, opts envOptions) (*appEnv, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(baseDir, "logs")
	logger, logCloser, err := logging.New(logging.Options{
		Dir:        logDir,
		File:       cfg.LogFile,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Stderr:     opts.Stderr,
	})
	if err != nil {
		return nil, err
	}
	env := &appEnv{baseDir: baseDir, cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	set, err := prompts.Load(baseDir)
	if err != nil {
		env.Close()
		return nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		env.Close()
		return nil, err
	}
	db.ConfigurePool(database, cfg)
	env.db = database
	env.closers = append(env.closers, database)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	gateway := opts.Gateway
	var gatewayErr error
	if gateway == nil {
		key, err := cfg.ResolveAPIKey()
		if err != nil {
			gatewayErr = err
		} else {
			gateway = assistant.NewOpenAIGateway(assistant.OpenAIOptions{
				APIKey:       key,
				BaseURL:      cfg.BaseURL,
				Model:        cfg.Model,
				PollInterval: cfg.PollInterval(),
				Logger:       logger,
			})
		}
	}

	env.store = state.NewStore(baseDir)
	env.lifecycle = lifecycle.NewManager(env.store, gateway,
		lifecycle.WithClock(now),
		lifecycle.WithLogger(logger),
	)

	env.summarizer = &ops.Summarizer{
		Source:     db.NewRepository(database),
		Gateway:    gateway,
		GatewayErr: gatewayErr,
		Prompts:    set,
		Config:     cfg,
		BaseDir:    baseDir,
		Lock:       ops.NewJobLock(baseDir),
		Logger:     logger,
		Now:        now,
	}
	if gateway != nil {
		env.summarizer.Contexts = env.lifecycle
	}

	if cfg.SaveUsageStats {
		usage, err := logging.OpenUsageLog(logDir, cfg.UsageLogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.summarizer.Usage = usage
		env.closers = append(env.closers, usage)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_tools", "tools", strings.Join(unknown, ", "))
	}

	return env, nil
}

// mcpDeps exposes the environment to the MCP server.
func (e *appEnv) mcpDeps() mcp.Deps {
	return mcp.Deps{
		DB:         e.db,
		Config:     e.cfg,
		Summarizer: e.summarizer,
		Lifecycle:  e.lifecycle,
		StatePath:  e.store.Path(),
	}
}

// webDeps exposes the environment to the viewer.
func (e *appEnv) webDeps() web.Deps {
	return web.Deps{
		DB:        e.db,
		Config:    e.cfg,
		BaseDir:   e.baseDir,
		Lifecycle: e.lifecycle,
		StatePath: e.store.Path(),
		Logger:    e.logger,
	}
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
	e.closers = nil
}
