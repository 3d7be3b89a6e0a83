// Package metadata loads deposit metadata templates and merges them into the
// metadata submitted for a release.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTemplate   = ".zenodo.json"
	DefaultUploadType = "software"
	dateLayout        = "2006-01-02"
)

// LoadTemplate reads a metadata template. JSON is assumed unless the file has
// a .yaml or .yml extension. An empty path yields an empty template.
func LoadTemplate(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata template: %w", err)
	}
	tmpl, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse metadata template %s: %w", path, err)
	}
	return tmpl, nil
}

// Decode parses template bytes according to the file extension.
func Decode(b []byte, ext string) (map[string]any, error) {
	tmpl := map[string]any{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return tmpl, nil
	}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &tmpl); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(b, &tmpl); err != nil {
			return nil, err
		}
	}
	if tmpl == nil {
		tmpl = map[string]any{}
	}
	return tmpl, nil
}

// Merge builds the metadata for a release. Keys from tmpl override keys in
// base; version and publication_date are always set and upload_type defaults
// to software. Neither input is modified.
func Merge(base, tmpl map[string]any, version string, now time.Time) map[string]any {
	out := make(map[string]any, len(base)+len(tmpl)+3)
	for k, v := range base {
		out[k] = v
	}
	for k, v := range tmpl {
		out[k] = v
	}
	out["version"] = version
	out["publication_date"] = now.UTC().Format(dateLayout)
	if v, ok := out["upload_type"]; !ok || v == nil || v == "" {
		out["upload_type"] = DefaultUploadType
	}
	return out
}
