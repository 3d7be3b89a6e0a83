package release

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"zenodex/internal/paths"
	"zenodex/internal/zenodo"
)

const (
	jsonContentType   = "application/json"
	binaryContentType = "application/octet-stream"
	recordFilename    = "record.json"
)

// Mirror receives copies of published archives and their record.
type Mirror interface {
	historyStore
	UploadFile(ctx context.Context, key, localPath, contentType string) error
	CopyToLatest(ctx context.Context, srcKey, filename string) error
	KeyForVersion(version, filename string) string
}

// mirrorRelease copies every archive and the published record to the mirror
// and records the release in the history manifest.
func mirrorRelease(ctx context.Context, m Mirror, version string, archives []paths.Archive, rec zenodo.Record, publishedAt time.Time) error {
	names := make([]string, 0, len(archives)+1)
	for _, a := range archives {
		key := m.KeyForVersion(version, a.Name)
		if err := m.UploadFile(ctx, key, a.Path, contentTypeFor(a.Name)); err != nil {
			return err
		}
		if err := m.CopyToLatest(ctx, key, a.Name); err != nil {
			return err
		}
		names = append(names, a.Name)
	}

	record, err := rec.Pretty()
	if err != nil {
		return fmt.Errorf("format record: %w", err)
	}
	recordKey := m.KeyForVersion(version, recordFilename)
	if err := m.UploadBytes(ctx, recordKey, record, jsonContentType); err != nil {
		return err
	}
	if err := m.CopyToLatest(ctx, recordKey, recordFilename); err != nil {
		return err
	}

	entry := HistoryEntry{
		Version:     version,
		RecordID:    rec.ID,
		DOI:         rec.DOI,
		ConceptDOI:  rec.ConceptDOI,
		URL:         rec.Links["html"],
		Files:       names,
		PublishedAt: publishedAt.UTC(),
	}
	h, err := appendHistory(ctx, m, entry)
	if err != nil {
		return err
	}
	slog.Info("release mirrored", "version", version, "files", len(names), "history", len(h.Entries))
	return nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return binaryContentType
}
