package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/mcp"
	"github.com/hpungsan/diarydigest/internal/ops"
	"github.com/hpungsan/diarydigest/internal/state"
	"github.com/hpungsan/diarydigest/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "diarydigest",
		Usage:   "Summarize voice-diary transcriptions with a persistent assistant",
		Version: Version,
		Commands: []*cli.Command{
			summarizeCmd(env),
			contextCmd(env),
			ingestCmd(env),
			listCmd(env),
			latestCmd(env),
			showCmd(env),
			exportCmd(env),
			importCmd(env),
			serveCmd(env),
			webCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// summarizeCmd creates the summarize command.
func summarizeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize a day or date range (defaults to config date_range, then today)",
		ArgsUsage: "[start YYYYMMDD] [end YYYYMMDD]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "Template name from prompts.yaml"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Summary format: text|html"},
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Directory for the summary file"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the rendered prompt without contacting the assistant"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 2 {
				return outputError(errors.NewInvalidRequest("summarize takes at most two dates"))
			}

			output, err := env.summarizer.Run(c.Context, ops.SummarizeInput{
				Start:     c.Args().Get(0),
				End:       c.Args().Get(1),
				Prompt:    c.String("prompt"),
				Format:    c.String("format"),
				OutputDir: c.String("output-dir"),
				DryRun:    c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// contextCmd creates the context command.
func contextCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Show the persisted assistant and thread without contacting the API",
		Action: func(c *cli.Context) error {
			output, err := ops.ContextStatus(env.lifecycle, env.store.Path())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// ingestCmd creates the ingest command.
func ingestCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Store a transcription (reads content from stdin unless --text is given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Transcription text"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Category"},
			&cli.StringFlag{Name: "filename", Usage: "Original audio file name"},
			&cli.StringFlag{Name: "audio-path", Usage: "Audio file location"},
			&cli.Float64Flag{Name: "duration", Usage: "Audio length in seconds"},
			&cli.StringFlag{Name: "at", Usage: "When it was recorded (RFC 3339, YYYY-MM-DD HH:MM:SS or epoch seconds)"},
			&cli.StringFlag{Name: "metadata", Usage: "JSON object of extra attributes"},
		},
		Action: func(c *cli.Context) error {
			content := c.String("text")
			if content == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("content must be given with --text or piped via stdin"))
				}
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				content = text
			}

			input := ops.IngestInput{Content: content}
			if v := c.String("category"); v != "" {
				input.Category = &v
			}
			if v := c.String("filename"); v != "" {
				input.Filename = &v
			}
			if v := c.String("audio-path"); v != "" {
				input.AudioPath = &v
			}
			if c.IsSet("duration") {
				d := c.Float64("duration")
				input.DurationSeconds = &d
			}
			if v := c.String("at"); v != "" {
				at, err := state.ParseTimestamp(v)
				if err != nil {
					return outputError(errors.NewInvalidRequest("at: " + err.Error()))
				}
				input.CreatedAt = &at
			}
			if v := c.String("metadata"); v != "" {
				meta, err := parseMetadata(v)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.Metadata = meta
			}

			output, err := ops.Ingest(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List transcriptions in a day or date range",
		ArgsUsage: "[start YYYYMMDD] [end YYYYMMDD]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Only this category"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Skip results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env.db, env.cfg, ops.ListInput{
				Start:    c.Args().Get(0),
				End:      c.Args().Get(1),
				Category: c.String("category"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recent transcriptions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultLatestLimit, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(c.Context, env.db, ops.LatestInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one transcription",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, env.db, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export transcriptions to a JSONL file",
		ArgsUsage: "[start YYYYMMDD] [end YYYYMMDD]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output file (.jsonl); default <home>/exports/entries-<timestamp>.jsonl"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.db, env.cfg, env.baseDir, ops.ExportInput{
				Path:  c.String("path"),
				Start: c.Args().Get(0),
				End:   c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import transcriptions from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Required: true, Usage: "Export file to read"},
			&cli.StringFlag{Name: "mode", Value: string(ops.ImportModeError), Usage: "On bad lines or existing IDs: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, env.db, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			env.logger.Info("starting MCP server", "version", Version, "base_dir", env.baseDir)
			if err := mcp.Run(env.mcpDeps(), Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// webCmd creates the web command.
func webCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Browse entries, summaries and thread state in a local web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(env.webDeps(), Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, env.logger); err != nil && err != http.ErrServerClosed {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if dErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseMetadata decodes a JSON object flag.
func parseMetadata(s string) (map[string]any, error) {
	var meta map[string]any
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %v", err)
	}
	return meta, nil
}
