package release

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"zenodex/internal/paths"
	"zenodex/internal/zenodo"
)

// UploadArchives streams every archive into the draft bucket. The first
// failure aborts the remaining uploads.
func UploadArchives(ctx context.Context, api API, draft zenodo.Deposition, archives []paths.Archive) ([]zenodo.BucketFile, error) {
	bucket := draft.Link("bucket")
	if bucket == "" {
		return nil, fmt.Errorf("draft %d has no bucket link", draft.ID)
	}
	uploaded := make([]zenodo.BucketFile, 0, len(archives))
	for _, a := range archives {
		out, err := uploadOne(ctx, api, bucket, a)
		if err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", a.Path, err)
		}
		slog.Info("archive uploaded", "draft", draft.ID, "file", a.Name, "size", humanize.Bytes(uint64(a.Size)))
		uploaded = append(uploaded, out)
	}
	return uploaded, nil
}

func uploadOne(ctx context.Context, api API, bucket string, a paths.Archive) (zenodo.BucketFile, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return zenodo.BucketFile{}, err
	}
	defer f.Close()
	size := a.Size
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return api.UploadFile(ctx, bucket, a.Name, f, size)
}
