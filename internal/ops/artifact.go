package ops

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/fsutil"
)

// ArtifactName returns the file name for a range's summary.
func ArtifactName(rng diary.DateRange, format string) string {
	ext := ".txt"
	if format == config.OutputHTML {
		ext = ".html"
	}
	return "diary_summary_" + rng.Key() + ext
}

// RenderArtifact builds the artifact body: header, blank line, summary.
// HTML output renders the summary as markdown.
func RenderArtifact(rng diary.DateRange, dateLayout, format, summary string) ([]byte, error) {
	header := diary.SummaryHeader(rng, dateLayout)
	if format != config.OutputHTML {
		return []byte(header + "\n\n" + summary + "\n"), nil
	}

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(summary), &body); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("render markdown: %w", err))
	}

	title := html.EscapeString(header)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", title)
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// writeArtifact renders and atomically writes the summary into dir.
// A previous artifact for the same range is replaced only on success.
func writeArtifact(dir string, rng diary.DateRange, dateLayout, format, summary string) (string, error) {
	data, err := RenderArtifact(rng, dateLayout, format, summary)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ArtifactName(rng, format))
	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}
