package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zenodex/internal/zenodo"
)

// ErrDOINotFound is returned when no deposition carries the concept DOI.
var ErrDOINotFound = errors.New("no deposition found for concept DOI")

// Locate returns the first deposition whose concept DOI matches conceptDOI.
func Locate(ctx context.Context, api API, conceptDOI string) (zenodo.Deposition, error) {
	deps, err := api.ListDepositions(ctx)
	if err != nil {
		return zenodo.Deposition{}, err
	}
	slog.Debug("depositions listed", "count", len(deps))
	for _, dep := range deps {
		if zenodo.SameDOI(dep.ConceptDOI, conceptDOI) {
			slog.Info("deposition located", "id", dep.ID, "conceptDOI", dep.ConceptDOI, "state", dep.State, "submitted", dep.Submitted)
			return dep, nil
		}
	}
	return zenodo.Deposition{}, fmt.Errorf("%w: %s", ErrDOINotFound, conceptDOI)
}
