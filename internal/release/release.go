package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"zenodex/internal/metadata"
	"zenodex/internal/paths"
	"zenodex/internal/zenodo"
)

// ErrMissingVersion is returned when no release version is given.
var ErrMissingVersion = errors.New("a release version is required")

// Options describes one publish run.
type Options struct {
	// Archives is a path or glob pattern naming the files to upload.
	Archives string
	// Template is the metadata template path. When TemplateRequired is false
	// a missing file is treated as an empty template.
	Template         string
	TemplateRequired bool
	Version          string
	// ConceptDOI selects an existing record to publish a new version of.
	ConceptDOI string
	// Mirror optionally receives copies of the release after publishing.
	Mirror Mirror
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a successful run.
type Result struct {
	Draft    zenodo.Deposition
	Record   zenodo.Record
	Archives []paths.Archive
	Uploaded []zenodo.BucketFile
}

// Run executes the workflow: create or locate the draft, upload archives,
// merge metadata and publish. Local inputs are validated before any request
// is sent.
func Run(ctx context.Context, api API, opts Options) (Result, error) {
	if strings.TrimSpace(opts.Version) == "" {
		return Result{}, ErrMissingVersion
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	archives, err := paths.ExpandArchives(opts.Archives)
	if err != nil {
		return Result{}, err
	}
	tmpl, err := loadTemplate(opts.Template, opts.TemplateRequired)
	if err != nil {
		return Result{}, err
	}

	var draft zenodo.Deposition
	var base map[string]any
	if opts.ConceptDOI != "" {
		dep, err := Locate(ctx, api, opts.ConceptDOI)
		if err != nil {
			return Result{}, err
		}
		draft, err = PrepareDraft(ctx, api, dep)
		if err != nil {
			return Result{}, err
		}
		base = draft.Metadata
	} else {
		draft, err = api.CreateDeposition(ctx)
		if err != nil {
			return Result{}, err
		}
		slog.Info("deposition created", "id", draft.ID)
	}

	uploaded, err := UploadArchives(ctx, api, draft, archives)
	if err != nil {
		return Result{}, err
	}

	merged := metadata.Merge(base, tmpl, opts.Version, now())
	updated, err := api.UpdateMetadata(ctx, draft, merged)
	if err != nil {
		return Result{}, err
	}
	if updated.ID != 0 {
		draft = updated
	}
	slog.Info("metadata updated", "draft", draft.ID, "version", opts.Version)

	rec, err := Publish(ctx, api, draft)
	if err != nil {
		return Result{}, err
	}

	res := Result{Draft: draft, Record: rec, Archives: archives, Uploaded: uploaded}
	if opts.Mirror != nil {
		if err := mirrorRelease(ctx, opts.Mirror, opts.Version, archives, rec, now()); err != nil {
			return res, fmt.Errorf("mirror release: %w", err)
		}
	}
	return res, nil
}

// Publish triggers the publish action of draft.
func Publish(ctx context.Context, api API, draft zenodo.Deposition) (zenodo.Record, error) {
	rec, err := api.Publish(ctx, draft)
	if err != nil {
		return zenodo.Record{}, err
	}
	slog.Info("record published", "id", rec.ID, "doi", rec.DOI, "conceptDOI", rec.ConceptDOI)
	return rec, nil
}

func loadTemplate(path string, required bool) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	tmpl, err := metadata.LoadTemplate(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			slog.Warn("metadata template not found, using empty template", "path", path)
			return map[string]any{}, nil
		}
		return nil, err
	}
	return tmpl, nil
}
