package zenodo

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Deposition is a deposit resource. An unsubmitted deposition is a draft.
type Deposition struct {
	ID           int64             `json:"id"`
	Submitted    bool              `json:"submitted"`
	State        string            `json:"state,omitempty"`
	Title        string            `json:"title,omitempty"`
	DOI          string            `json:"doi,omitempty"`
	ConceptDOI   string            `json:"conceptdoi,omitempty"`
	ConceptRecID string            `json:"conceptrecid,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Files        []DepositionFile  `json:"files,omitempty"`
	Links        map[string]string `json:"links,omitempty"`
}

// IsDraft reports whether the deposition can still be edited.
func (d Deposition) IsDraft() bool {
	return !d.Submitted || d.State == "unsubmitted"
}

// Link returns the named link or an empty string.
func (d Deposition) Link(name string) string {
	if d.Links == nil {
		return ""
	}
	return d.Links[name]
}

// DepositionFile is a file attached to a deposition.
type DepositionFile struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Filesize int64             `json:"filesize,omitempty"`
	Checksum string            `json:"checksum,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
}

// BucketFile is the object description returned by a bucket upload.
type BucketFile struct {
	Key      string            `json:"key"`
	Size     int64             `json:"size"`
	Checksum string            `json:"checksum,omitempty"`
	MimeType string            `json:"mimetype,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
}

// Record is a published record. Raw keeps the document exactly as returned so
// it can be printed without losing fields.
type Record struct {
	ID         int64             `json:"id"`
	DOI        string            `json:"doi,omitempty"`
	ConceptDOI string            `json:"conceptdoi,omitempty"`
	Links      map[string]string `json:"links,omitempty"`
	Raw        json.RawMessage   `json:"-"`
}

func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Record(p)
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Pretty renders the record as indented JSON, preserving the field order the
// service used.
func (r Record) Pretty() ([]byte, error) {
	if len(r.Raw) == 0 {
		return json.MarshalIndent(r, "", "    ")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Raw, "", "    "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NormalizeDOI lowercases a DOI and strips resolver prefixes so that
// "https://doi.org/10.5281/zenodo.1" and "10.5281/ZENODO.1" compare equal.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	return d
}

// SameDOI reports whether two DOIs identify the same object.
func SameDOI(a, b string) bool {
	na, nb := NormalizeDOI(a), NormalizeDOI(b)
	return na != "" && na == nb
}
