package release

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zenodex/internal/storage"
)

const (
	historyFilename = "releases.json"
	historySize     = 50
)

// HistoryEntry records one published release in the mirror manifest.
type HistoryEntry struct {
	Version     string    `json:"version"`
	RecordID    int64     `json:"recordId"`
	DOI         string    `json:"doi,omitempty"`
	ConceptDOI  string    `json:"conceptDoi,omitempty"`
	URL         string    `json:"url,omitempty"`
	Files       []string  `json:"files"`
	PublishedAt time.Time `json:"publishedAt"`
}

// History is the manifest stored next to mirrored releases, newest first.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

type historyStore interface {
	DownloadBytes(ctx context.Context, key string) ([]byte, error)
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) error
	Key(filename string) string
}

func loadHistory(ctx context.Context, store historyStore) (History, error) {
	data, err := store.DownloadBytes(ctx, store.Key(historyFilename))
	if err != nil {
		if storage.IsNotFound(err) {
			return History{}, nil
		}
		return History{}, fmt.Errorf("download release history: %w", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("parse release history: %w", err)
	}
	return h, nil
}

func trimHistory(h History, size int) History {
	if size <= 0 {
		return History{}
	}
	if len(h.Entries) > size {
		h.Entries = h.Entries[:size]
	}
	return h
}

// appendHistory prepends entry, replacing an older entry of the same version.
func appendHistory(ctx context.Context, store historyStore, entry HistoryEntry) (History, error) {
	h, err := loadHistory(ctx, store)
	if err != nil {
		return History{}, err
	}
	entries := []HistoryEntry{entry}
	for _, e := range h.Entries {
		if e.Version != entry.Version {
			entries = append(entries, e)
		}
	}
	h = trimHistory(History{Entries: entries}, historySize)
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return History{}, err
	}
	if err := store.UploadBytes(ctx, store.Key(historyFilename), data, jsonContentType); err != nil {
		return History{}, fmt.Errorf("upload release history: %w", err)
	}
	return h, nil
}
