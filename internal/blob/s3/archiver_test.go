package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

type memWriter struct {
	path        string
	contentType string
	body        []byte
	err         error
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.path, w.contentType = path, contentType
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(data)
	w.body = buf.Bytes()
	return nil
}

func TestSnapshotArchiver(t *testing.T) {
	w := &memWriter{}
	a := NewSnapshotArchiver(w)
	at := time.Date(2025, 10, 5, 23, 30, 0, 0, time.FixedZone("EDT", -4*3600))

	path, err := a.Archive(context.Background(), "run-1", at, []domain.Market{
		{ID: "1", Question: "A & B"},
		{ID: "2", Question: "C"},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if path != "snapshots/2025/10/06/run-1.jsonl" || w.path != path {
		t.Errorf("path = %q (writer got %q)", path, w.path)
	}
	if w.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", w.contentType)
	}

	lines := strings.Split(strings.TrimSpace(string(w.body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `A & B`) {
		t.Errorf("HTML escaping not disabled: %s", lines[0])
	}
	var m domain.Market
	if err := json.Unmarshal([]byte(lines[1]), &m); err != nil || m.ID != "2" {
		t.Errorf("line 2 = %s (%v)", lines[1], err)
	}
}

func TestSnapshotArchiverEmptyAndFailure(t *testing.T) {
	w := &memWriter{}
	path, err := NewSnapshotArchiver(w).Archive(context.Background(), "r", time.Now(), nil)
	if err != nil || path != "" || w.path != "" {
		t.Errorf("empty run wrote %q, %v", w.path, err)
	}

	boom := errors.New("denied")
	_, err = NewSnapshotArchiver(&memWriter{err: boom}).Archive(context.Background(), "r", time.Now(), []domain.Market{{ID: "1"}})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped upload error", err)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Errorf("got %s", got)
	}
	if got := normaliseEndpoint("r2.example.com", true); got != "https://r2.example.com" {
		t.Errorf("got %s", got)
	}
	if got := normaliseEndpoint("https://s3.example.com", false); got != "https://s3.example.com" {
		t.Errorf("got %s", got)
	}
}
