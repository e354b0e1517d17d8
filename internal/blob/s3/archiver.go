package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// SnapshotArchiver uploads the markets stored by a sync run as JSONL, one
// object per run, partitioned by day:
//
//	snapshots/2025/10/05/<run-id>.jsonl
type SnapshotArchiver struct {
	writer domain.BlobWriter
}

// NewSnapshotArchiver creates a SnapshotArchiver writing through writer.
func NewSnapshotArchiver(writer domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer}
}

// Archive uploads markets and returns the object path. Nothing is written
// for an empty run.
func (a *SnapshotArchiver) Archive(ctx context.Context, runID string, at time.Time, markets []domain.Market) (string, error) {
	if len(markets) == 0 {
		return "", nil
	}
	buf, err := marshalJSONL(markets)
	if err != nil {
		return "", fmt.Errorf("s3blob: snapshot marshal: %w", err)
	}

	path := snapshotPath(runID, at)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: snapshot upload: %w", err)
	}
	return path, nil
}

func snapshotPath(runID string, at time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.jsonl", at.UTC().Format("2006/01/02"), runID)
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
