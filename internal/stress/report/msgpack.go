package report

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wesleyorama2/strest/internal/stress"
)

// MsgpackWriter writes <dir>/<name>.msgpack, a compact binary form of the
// document for archival and machine consumption.
type MsgpackWriter struct {
	Metrics SnapshotSource
}

func (w *MsgpackWriter) Name() string { return "msgpack" }

// WriteReport writes the document as MessagePack.
func (w *MsgpackWriter) WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error {
	data, err := msgpack.Marshal(NewDocument(name, description, store, w.Metrics))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = writeFile(ctx, dir, Filename(name, ".msgpack"), data)
	return err
}

// DecodeMsgpack reads a document written by MsgpackWriter.
func DecodeMsgpack(data []byte) (*Document, error) {
	var doc Document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &doc, nil
}
