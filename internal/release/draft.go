package release

import (
	"context"
	"fmt"
	"log/slog"

	"zenodex/internal/zenodo"
)

// PrepareDraft returns an editable draft for dep. An unsubmitted deposition is
// reused as is; a published one gets a new version. Files inherited by the
// draft are removed on a best-effort basis.
func PrepareDraft(ctx context.Context, api API, dep zenodo.Deposition) (zenodo.Deposition, error) {
	draft := dep
	if !dep.IsDraft() {
		parent, err := api.NewVersion(ctx, dep)
		if err != nil {
			return zenodo.Deposition{}, err
		}
		link := parent.Link("latest_draft")
		if link == "" {
			return zenodo.Deposition{}, fmt.Errorf("new version of deposition %d has no latest_draft link", dep.ID)
		}
		draft, err = api.GetDeposition(ctx, link)
		if err != nil {
			return zenodo.Deposition{}, err
		}
		slog.Info("new version draft created", "parent", dep.ID, "draft", draft.ID)
	} else {
		slog.Info("reusing unpublished draft", "draft", draft.ID)
	}

	clearFiles(ctx, api, draft)
	draft.Files = nil
	return draft, nil
}

func clearFiles(ctx context.Context, api API, draft zenodo.Deposition) {
	for _, f := range draft.Files {
		if err := api.DeleteFile(ctx, f); err != nil {
			slog.Warn("failed to delete inherited file", "draft", draft.ID, "file", f.Filename, "err", err)
			continue
		}
		slog.Debug("deleted inherited file", "draft", draft.ID, "file", f.Filename)
	}
}
