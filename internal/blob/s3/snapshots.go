package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
	"github.com/chainbets/chainbet/internal/fingerprint"
)

// multipartThreshold is the payload size above which snapshots are uploaded
// via the multipart manager instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotWriter can persist a payload either in one shot or in parts.
// *Writer satisfies it; tests substitute a fake.
type SnapshotWriter interface {
	domain.BlobWriter
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SnapshotArchiver stores every fetched chain snapshot as a JSON document so
// reconciliation decisions can be audited and replayed later.
type SnapshotArchiver struct {
	blobs  domain.BlobWriter
	prefix string
}

// NewSnapshotArchiver creates an archiver writing under the given key prefix
// (e.g. "snapshots").
func NewSnapshotArchiver(blobs domain.BlobWriter, prefix string) *SnapshotArchiver {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &SnapshotArchiver{
		blobs:  blobs,
		prefix: prefix,
	}
}

// snapshotDoc is the archived JSON layout.
type snapshotDoc struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Count     int           `json:"count"`
	Questions []snapshotRow `json:"questions"`
}

type snapshotRow struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	ExpiresAt   time.Time `json:"expires_at"`
	Creator     string    `json:"creator"`
	TotalStaked int64     `json:"total_staked"`
}

// Archive uploads one snapshot document. The object key encodes the fetch
// timestamp so successive snapshots never collide.
func (a *SnapshotArchiver) Archive(ctx context.Context, fetchedAt time.Time, questions []domain.ChainQuestion) error {
	doc := snapshotDoc{
		FetchedAt: fetchedAt.UTC(),
		Count:     len(questions),
		Questions: make([]snapshotRow, 0, len(questions)),
	}
	for _, q := range questions {
		doc.Questions = append(doc.Questions, snapshotRow{
			ID:          q.Identity,
			Fingerprint: fingerprint.Hex(q.Fingerprint),
			ExpiresAt:   q.ExpiresAt,
			Creator:     q.Creator,
			TotalStaked: q.TotalStaked,
		})
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("s3blob: encode snapshot: %w", err)
	}

	key := a.key(fetchedAt)
	if mp, ok := a.blobs.(SnapshotWriter); ok && len(payload) > multipartThreshold {
		if err := mp.PutMultipart(ctx, key, bytes.NewReader(payload), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive snapshot %s: %w", key, err)
		}
		return nil
	}

	if err := a.blobs.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive snapshot %s: %w", key, err)
	}
	return nil
}

// key builds the object key, partitioned by day for cheap listing.
func (a *SnapshotArchiver) key(fetchedAt time.Time) string {
	t := fetchedAt.UTC()
	return fmt.Sprintf("%s/%s/questions-%s.json",
		a.prefix,
		t.Format("2006/01/02"),
		t.Format("20060102T150405Z"),
	)
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
