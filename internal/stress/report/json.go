package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wesleyorama2/strest/internal/stress"
)

// JSONWriter writes <dir>/<name>.json.
type JSONWriter struct {
	Metrics SnapshotSource
	Indent  bool
}

func (w *JSONWriter) Name() string { return "json" }

// WriteReport writes the document as JSON.
func (w *JSONWriter) WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error {
	doc := NewDocument(name, description, store, w.Metrics)

	var (
		data []byte
		err  error
	)
	if w.Indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = writeFile(ctx, dir, Filename(name, ".json"), data)
	return err
}
