package mcp

import "github.com/mark3labs/mcp-go/mcp"

var summarizeToolDef = mcp.NewTool("diary_summarize",
	mcp.WithDescription("Summarize the diary transcriptions of a day or date range with the persistent assistant and write the summary file. Defaults to the configured range, then today."),
	mcp.WithString("start", mcp.Description("First day, YYYYMMDD or YYYY-MM-DD")),
	mcp.WithString("end", mcp.Description("Last day (inclusive); defaults to start")),
	mcp.WithString("prompt", mcp.Description("Template name from prompts.yaml; defaults to the active template")),
	mcp.WithString("format", mcp.Description("Summary file format"), mcp.Enum("text", "html")),
	mcp.WithBoolean("dry_run", mcp.Description("Return the rendered prompt without contacting the assistant")),
	mcp.WithDestructiveHintAnnotation(false),
)

var contextToolDef = mcp.NewTool("diary_context",
	mcp.WithDescription("Show the persisted assistant and thread, the thread age, and whether the next summary will start a new thread."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("diary_list",
	mcp.WithDescription("List transcriptions recorded in a day or date range, oldest first."),
	mcp.WithString("start", mcp.Description("First day, YYYYMMDD or YYYY-MM-DD")),
	mcp.WithString("end", mcp.Description("Last day (inclusive); defaults to start")),
	mcp.WithString("category", mcp.Description("Only entries in this category")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)"), mcp.Min(0), mcp.Max(500)),
	mcp.WithNumber("offset", mcp.Description("Entries to skip"), mcp.Min(0)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var fetchToolDef = mcp.NewTool("diary_fetch",
	mcp.WithDescription("Fetch one transcription by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Transcription id")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var ingestToolDef = mcp.NewTool("diary_ingest",
	mcp.WithDescription("Store a voice-diary transcription."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Transcribed text")),
	mcp.WithString("category", mcp.Description("Category shown in summaries")),
	mcp.WithString("filename", mcp.Description("Original audio file name")),
	mcp.WithString("audio_path", mcp.Description("Audio file location")),
	mcp.WithNumber("duration_seconds", mcp.Description("Audio length in seconds"), mcp.Min(0)),
	mcp.WithString("created_at", mcp.Description("When the entry was recorded (RFC 3339); defaults to now")),
	mcp.WithObject("metadata", mcp.Description("Free-form attributes from the transcriber")),
	mcp.WithDestructiveHintAnnotation(false),
)
