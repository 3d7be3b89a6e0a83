// Package release runs the publish workflow against the deposit API:
// create or locate a draft, replace its files, merge metadata and publish.
package release

import (
	"context"
	"io"

	"zenodex/internal/zenodo"
)

// API is the subset of the Zenodo client the workflow needs.
type API interface {
	ListDepositions(ctx context.Context) ([]zenodo.Deposition, error)
	CreateDeposition(ctx context.Context) (zenodo.Deposition, error)
	NewVersion(ctx context.Context, dep zenodo.Deposition) (zenodo.Deposition, error)
	GetDeposition(ctx context.Context, link string) (zenodo.Deposition, error)
	DeleteFile(ctx context.Context, file zenodo.DepositionFile) error
	UploadFile(ctx context.Context, bucketURL, name string, r io.Reader, size int64) (zenodo.BucketFile, error)
	UpdateMetadata(ctx context.Context, dep zenodo.Deposition, metadata map[string]any) (zenodo.Deposition, error)
	Publish(ctx context.Context, dep zenodo.Deposition) (zenodo.Record, error)
}

var _ API = (*zenodo.Client)(nil)
