package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/wesleyorama2/strest/internal/stress"
)

// HTMLWriter writes a self-contained <dir>/<name>.html page.
type HTMLWriter struct {
	Metrics SnapshotSource
}

func (w *HTMLWriter) Name() string { return "html" }

// WriteReport renders the document as HTML.
func (w *HTMLWriter) WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error {
	html, err := RenderHTML(NewDocument(name, description, store, w.Metrics))
	if err != nil {
		return err
	}

	_, err = writeFile(ctx, dir, Filename(name, ".html"), []byte(html))
	return err
}

// RenderHTML renders doc and returns the page.
func RenderHTML(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document cannot be nil")
	}

	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime":     formatTime,
		"formatDuration": formatDuration,
		"formatData":     formatData,
		"instance":       formatInstance,
		"kindClass":      kindClass,
		"count":          count,
	}
}

func formatTime(t time.Time) string {
	return t.Format("15:04:05.000")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "-"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatData(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func formatInstance(idx *int) string {
	if idx == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *idx)
}

func kindClass(k stress.ReportKind) string {
	switch k {
	case stress.KindError:
		return "error"
	case stress.KindWarning:
		return "warning"
	default:
		return "note"
	}
}

func count(counts map[stress.ReportKind]int, kind string) int {
	return counts[stress.ReportKind(kind)]
}
