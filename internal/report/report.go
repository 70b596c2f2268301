// ABOUTME: Report generation for admin CSV export and alert explanation handoff
// ABOUTME: Streams the backend CSV to disk; renders alert markdown to HTML

package report

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sentinelai/sentinel-cli/internal/api"
)

// Exporter is the slice of the API client the CSV export needs.
type Exporter interface {
	ExportReport(ctx context.Context, w io.Writer) error
}

// ExportCSV streams the institution-wide report to path. The file is removed
// on failure so a partial download never looks like a finished report.
func ExportCSV(ctx context.Context, exp Exporter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := exp.ExportReport(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("downloading report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

const explanationShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; line-height: 1.5; }
.severity { text-transform: uppercase; font-weight: bold; color: %s; }
</style>
</head>
<body>
<h1>%s</h1>
<p class="severity">%s</p>
%s
</body>
</html>
`

func severityColor(severity string) string {
	switch severity {
	case api.SeverityCritical, api.SeverityHigh:
		return "#ef4444"
	case api.SeverityMedium:
		return "#f59e0b"
	default:
		return "#10b981"
	}
}

// ExplanationHTML renders an alert's explanation and recommendation markdown
// into a standalone HTML document for incident handoff.
func ExplanationHTML(alert api.Alert) ([]byte, error) {
	var body bytes.Buffer
	if alert.ExplanationText != "" {
		if err := markdown.Convert([]byte(alert.ExplanationText), &body); err != nil {
			return nil, fmt.Errorf("rendering explanation: %w", err)
		}
	}
	if alert.Recommendation != "" {
		body.WriteString("<h2>Recommendation</h2>\n")
		if err := markdown.Convert([]byte(alert.Recommendation), &body); err != nil {
			return nil, fmt.Errorf("rendering recommendation: %w", err)
		}
	}

	title := html.EscapeString(alert.Message)
	doc := fmt.Sprintf(explanationShell,
		title, severityColor(alert.Severity), title,
		html.EscapeString(alert.Severity), body.String())
	return []byte(doc), nil
}

// WriteExplanation renders the alert handoff document to path.
func WriteExplanation(alert api.Alert, path string) error {
	doc, err := ExplanationHTML(alert)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return fmt.Errorf("writing explanation file: %w", err)
	}
	return nil
}
