package zenodo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// ListDepositions returns every deposition visible to the token, walking the
// paginated listing until a short or empty page comes back.
func (c *Client) ListDepositions(ctx context.Context) ([]Deposition, error) {
	var all []Deposition
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		// A server that ignores the page parameter keeps returning page one.
		if page > 1 && len(batch) > 0 && len(all) > 0 && batch[0].ID == all[0].ID {
			break
		}
		all = append(all, batch...)
		if len(batch) < DefaultPageSize {
			break
		}
	}
	return all, nil
}

func (c *Client) listPage(ctx context.Context, page, size int) ([]Deposition, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var deps []Deposition
	if err := c.get(ctx, "list", depositionsPath+"?"+q.Encode(), &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// CreateDeposition creates an empty deposition.
func (c *Client) CreateDeposition(ctx context.Context) (Deposition, error) {
	var dep Deposition
	if err := c.post(ctx, "create", depositionsPath, struct{}{}, &dep); err != nil {
		return Deposition{}, err
	}
	return dep, nil
}

// GetDeposition fetches a deposition by link, e.g. links.latest_draft.
func (c *Client) GetDeposition(ctx context.Context, link string) (Deposition, error) {
	if link == "" {
		return Deposition{}, errors.New("deposition link is empty")
	}
	var dep Deposition
	if err := c.get(ctx, "get-draft", link, &dep); err != nil {
		return Deposition{}, err
	}
	return dep, nil
}

// NewVersion triggers the new-version action on a published deposition. The
// response describes the published parent; the new draft is reachable through
// its latest_draft link.
func (c *Client) NewVersion(ctx context.Context, dep Deposition) (Deposition, error) {
	link := dep.Link("newversion")
	if link == "" {
		link = fmt.Sprintf("%s/%d/actions/newversion", depositionsPath, dep.ID)
	}
	var parent Deposition
	if err := c.post(ctx, "new-version", link, nil, &parent); err != nil {
		return Deposition{}, err
	}
	return parent, nil
}

// DeleteFile removes a file from a draft.
func (c *Client) DeleteFile(ctx context.Context, file DepositionFile) error {
	link := ""
	if file.Links != nil {
		link = file.Links["self"]
	}
	if link == "" {
		return fmt.Errorf("file %q has no self link", file.Filename)
	}
	return c.delete(ctx, "delete-file", link)
}

// UploadFile streams r into the draft bucket under name.
func (c *Client) UploadFile(ctx context.Context, bucketURL, name string, r io.Reader, size int64) (BucketFile, error) {
	if bucketURL == "" {
		return BucketFile{}, errors.New("draft has no bucket link")
	}
	if name == "" || strings.ContainsAny(name, "/\\") {
		return BucketFile{}, fmt.Errorf("invalid upload name %q", name)
	}
	target := strings.TrimRight(bucketURL, "/") + "/" + url.PathEscape(path.Base(name))
	var out BucketFile
	if err := c.putStream(ctx, "upload", target, r, size, &out); err != nil {
		return BucketFile{}, err
	}
	return out, nil
}

// UpdateMetadata replaces the draft metadata.
func (c *Client) UpdateMetadata(ctx context.Context, dep Deposition, metadata map[string]any) (Deposition, error) {
	link := dep.Link("self")
	if link == "" {
		link = fmt.Sprintf("%s/%d", depositionsPath, dep.ID)
	}
	body := struct {
		Metadata map[string]any `json:"metadata"`
	}{Metadata: metadata}
	var updated Deposition
	if err := c.put(ctx, "metadata-update", link, body, &updated); err != nil {
		return Deposition{}, err
	}
	return updated, nil
}

// Publish invokes the publish action of a draft.
func (c *Client) Publish(ctx context.Context, dep Deposition) (Record, error) {
	link := dep.Link("publish")
	if link == "" {
		link = fmt.Sprintf("%s/%d/actions/publish", depositionsPath, dep.ID)
	}
	var rec Record
	if err := c.post(ctx, "publish", link, nil, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
