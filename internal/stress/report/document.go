// Package report provides the report writers that persist a stress test's
// report store once all of its cases finished.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/metrics"
)

// SnapshotSource provides the statistics of one spec to include in its
// document.
type SnapshotSource interface {
	SpecSnapshot(spec string) *metrics.Snapshot
}

// PhaseReports holds the reports of one phase.
type PhaseReports struct {
	Phase   stress.Phase    `json:"phase" msgpack:"phase"`
	Reports []stress.Report `json:"reports" msgpack:"reports"`
}

// Document is the serializable form of one stress test's reports.
type Document struct {
	Name        string                    `json:"name" msgpack:"name"`
	Description string                    `json:"description,omitempty" msgpack:"description,omitempty"`
	GeneratedAt time.Time                 `json:"generatedAt" msgpack:"generatedAt"`
	Total       int                       `json:"total" msgpack:"total"`
	Counts      map[stress.ReportKind]int `json:"counts" msgpack:"counts"`
	Phases      []PhaseReports            `json:"phases" msgpack:"phases"`
	Metrics     *metrics.Snapshot         `json:"metrics,omitempty" msgpack:"metrics,omitempty"`
}

// NewDocument builds a document from store. Phases appear in canonical order.
func NewDocument(name, description string, store *stress.Store, source SnapshotSource) *Document {
	doc := &Document{
		Name:        name,
		Description: description,
		GeneratedAt: time.Now().UTC(),
		Counts:      store.Counts(),
		Phases:      make([]PhaseReports, 0, len(stress.Phases)),
	}

	for _, phase := range stress.Phases {
		reports := store.Reports(phase)
		doc.Total += len(reports)
		doc.Phases = append(doc.Phases, PhaseReports{Phase: phase, Reports: reports})
	}

	if source != nil {
		doc.Metrics = source.SpecSnapshot(name)
	}
	return doc
}

// Summary is the compact form of a document published to notification sinks.
type Summary struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Total       int                       `json:"total"`
	Counts      map[stress.ReportKind]int `json:"counts"`
	Location    string                    `json:"location,omitempty"`
}

// Summary returns the compact form of the document.
func (d *Document) Summary() Summary {
	return Summary{
		Name:        d.Name,
		Description: d.Description,
		GeneratedAt: d.GeneratedAt,
		Total:       d.Total,
		Counts:      d.Counts,
	}
}

// Errors returns every ERROR report across phases.
func (d *Document) Errors() []stress.Report {
	var out []stress.Report
	for _, p := range d.Phases {
		for _, r := range p.Reports {
			if r.Kind == stress.KindError {
				out = append(out, r)
			}
		}
	}
	return out
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)

// maxFilenameBytes leaves room for an extension under the usual 255 byte limit.
const maxFilenameBytes = 200

// Filename turns a test name into a safe file name with the given extension.
func Filename(name, ext string) string {
	safe := unsafeFilename.ReplaceAllString(name, "!")
	safe = strings.Trim(safe, " .")
	if safe == "" {
		safe = "report"
	}
	if len(safe) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(safe[cut]) {
			cut--
		}
		safe = safe[:cut]
	}
	return safe + ext
}

// writeFile creates dir if needed and writes data to dir/name.
func writeFile(ctx context.Context, dir, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
