package s3blob

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
)

// captureWriter records the last Put call.
type captureWriter struct {
	path        string
	contentType string
	payload     []byte
}

func (c *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	c.path = path
	c.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	c.payload = b
	return nil
}

func TestSnapshotArchiver_Archive(t *testing.T) {
	w := &captureWriter{}
	archiver := NewSnapshotArchiver(w, "snapshots")

	fetchedAt := time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC)
	questions := []domain.ChainQuestion{
		{
			Identity:    "42",
			Fingerprint: big.NewInt(0xdeadbeef),
			ExpiresAt:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			Creator:     "0x1111111111111111111111111111111111111111",
			TotalStaked: 500,
		},
	}

	if err := archiver.Archive(context.Background(), fetchedAt, questions); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if want := "snapshots/2026/08/23/questions-20260823T101500Z.json"; w.path != want {
		t.Errorf("object key = %q, want %q", w.path, want)
	}
	if w.contentType != "application/json" {
		t.Errorf("content type = %q, want application/json", w.contentType)
	}

	var doc struct {
		FetchedAt time.Time `json:"fetched_at"`
		Count     int       `json:"count"`
		Questions []struct {
			ID          string `json:"id"`
			Fingerprint string `json:"fingerprint"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(w.payload, &doc); err != nil {
		t.Fatalf("decode archived payload: %v", err)
	}
	if doc.Count != 1 || len(doc.Questions) != 1 {
		t.Fatalf("count = %d, questions = %d, want 1 each", doc.Count, len(doc.Questions))
	}
	if doc.Questions[0].ID != "42" {
		t.Errorf("question id = %q, want %q", doc.Questions[0].ID, "42")
	}
	if !strings.HasPrefix(doc.Questions[0].Fingerprint, "0x") {
		t.Errorf("fingerprint %q not hex encoded", doc.Questions[0].Fingerprint)
	}
}

func TestSnapshotArchiver_EmptySnapshot(t *testing.T) {
	w := &captureWriter{}
	archiver := NewSnapshotArchiver(w, "")

	if err := archiver.Archive(context.Background(), time.Now(), nil); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !strings.HasPrefix(w.path, "snapshots/") {
		t.Errorf("object key = %q, want default snapshots/ prefix", w.path)
	}
}
