package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "zenodex/internal/config"
	"zenodex/internal/release"
)

// fakeZenodo serves the subset of the deposit API the upload command uses.
type fakeZenodo struct {
	t     *testing.T
	srv   *httptest.Server
	mu    sync.Mutex
	calls []string
	deps  []map[string]any
	// uploads maps bucket object names to their content.
	uploads  map[string]string
	metadata map[string]any
}

func newFakeZenodo(t *testing.T) *fakeZenodo {
	f := &fakeZenodo{t: t, uploads: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeZenodo) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeZenodo) deposition(id int, submitted bool) map[string]any {
	base := f.srv.URL
	return map[string]any{
		"id":         id,
		"submitted":  submitted,
		"conceptdoi": "10.5281/zenodo.1",
		"metadata":   map[string]any{"title": "Tool"},
		"links": map[string]string{
			"self":       fmt.Sprintf("%s/api/deposit/depositions/%d", base, id),
			"bucket":     fmt.Sprintf("%s/api/files/bucket-%d", base, id),
			"publish":    fmt.Sprintf("%s/api/deposit/depositions/%d/actions/publish", base, id),
			"newversion": fmt.Sprintf("%s/api/deposit/depositions/%d/actions/newversion", base, id),
		},
	}
}

func (f *fakeZenodo) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	p := r.URL.Path
	switch {
	case r.Method == http.MethodGet && p == "/api/deposit/depositions":
		f.record("list")
		_ = json.NewEncoder(w).Encode(f.deps)
	case r.Method == http.MethodPost && p == "/api/deposit/depositions":
		f.record("create")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(f.deposition(42, false))
	case r.Method == http.MethodPost && strings.HasSuffix(p, "/actions/newversion"):
		f.record("new-version")
		parent := f.deposition(1, true)
		parent["links"].(map[string]string)["latest_draft"] = f.srv.URL + "/api/deposit/depositions/43"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(parent)
	case r.Method == http.MethodGet && p == "/api/deposit/depositions/43":
		f.record("get-draft")
		_ = json.NewEncoder(w).Encode(f.deposition(43, false))
	case r.Method == http.MethodPut && strings.HasPrefix(p, "/api/files/"):
		b, _ := io.ReadAll(r.Body)
		name := filepath.Base(p)
		f.record("upload:" + name)
		f.mu.Lock()
		f.uploads[strings.TrimPrefix(p, "/api/files/")] = string(b)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"key": name, "size": len(b)})
	case r.Method == http.MethodPut && strings.HasPrefix(p, "/api/deposit/depositions/"):
		f.record("metadata")
		var body struct {
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.metadata = body.Metadata
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":0}`)
	case r.Method == http.MethodPost && strings.HasSuffix(p, "/actions/publish"):
		f.record("publish")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"id":42,"doi":"10.5281/zenodo.42","conceptdoi":"10.5281/zenodo.1","links":{"doi":"https://doi.org/10.5281/zenodo.42","html":"https://zenodo.test/records/42"}}`)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, p)
		w.WriteHeader(http.StatusNotFound)
	}
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	return tmp
}

func setupUploadEnv(t *testing.T) string {
	t.Helper()
	tmp := chdirTemp(t)
	t.Setenv("ZENODO_TOKEN", "test-token")
	t.Setenv("GITHUB_OUTPUT", "")
	require.NoError(t, os.MkdirAll("dist", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("dist", "tool-1.0.tar.gz"), []byte("tarball"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join("dist", "tool-1.0.zip"), []byte("zipfile"), 0o644))
	require.NoError(t, os.WriteFile(".zenodo.json", []byte(`{"title":"Tool","upload_type":"software","creators":[{"name":"Doe, Jane"}]}`), 0o644))
	return tmp
}

func TestUploadFreshDeposit(t *testing.T) {
	setupUploadEnv(t)
	fz := newFakeZenodo(t)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/tool-1.0.*", "--version=1.0", "--base-url=" + fz.srv.URL}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{"create", "upload:tool-1.0.tar.gz", "upload:tool-1.0.zip", "metadata", "publish"}, fz.calls)
	assert.Equal(t, "zipfile", fz.uploads["bucket-42/tool-1.0.zip"])
	assert.Equal(t, "1.0", fz.metadata["version"])
	assert.Equal(t, "Tool", fz.metadata["title"])
	assert.NotEmpty(t, fz.metadata["publication_date"])

	out := stdout.String()
	assert.Contains(t, out, "::group::Record\n")
	assert.Contains(t, out, "::endgroup::\n")
	assert.Contains(t, out, "doi=https://doi.org/10.5281/zenodo.42\nhtml=https://zenodo.test/records/42\n")
}

func TestUploadNewVersionOfPublishedRecord(t *testing.T) {
	setupUploadEnv(t)
	fz := newFakeZenodo(t)
	fz.deps = []map[string]any{fz.deposition(1, true)}

	outputs := filepath.Join(t.TempDir(), "github_output")
	t.Setenv("GITHUB_OUTPUT", outputs)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/tool-1.0.zip", "--version=1.1", "--doi=10.5281/zenodo.1", "--base-url=" + fz.srv.URL}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{"list", "new-version", "get-draft", "upload:tool-1.0.zip", "metadata", "publish"}, fz.calls)
	assert.Contains(t, fz.uploads, "bucket-43/tool-1.0.zip")

	data, err := os.ReadFile(outputs)
	require.NoError(t, err)
	assert.Equal(t, "doi=https://doi.org/10.5281/zenodo.42\nhtml=https://zenodo.test/records/42\n", string(data))
	assert.NotContains(t, stdout.String(), "html=")
}

func TestUploadUnknownDOIFails(t *testing.T) {
	setupUploadEnv(t)
	fz := newFakeZenodo(t)
	fz.deps = []map[string]any{fz.deposition(1, true)}

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/tool-1.0.zip", "--version=1.1", "--doi=10.5281/zenodo.999", "--base-url=" + fz.srv.URL}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"list"}, fz.calls)
	assert.Contains(t, stderr.String(), "no deposition found")
	assert.Empty(t, stdout.String())
}

func TestUploadMissingExplicitTemplateFails(t *testing.T) {
	setupUploadEnv(t)
	fz := newFakeZenodo(t)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/tool-1.0.zip", "--version=1.0", "--zenodo-json=missing.json", "--base-url=" + fz.srv.URL}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, fz.calls)
}

func TestUploadSandboxFromConfigFile(t *testing.T) {
	setupUploadEnv(t)
	require.NoError(t, os.WriteFile("zenodex.yaml", []byte("sandbox: true\nlogLevel: debug\n"), 0o644))

	orig := newAPI
	t.Cleanup(func() { newAPI = orig })
	var got cfgpkg.Config
	newAPI = func(cfg cfgpkg.Config) (release.API, error) {
		got = cfg
		return nil, fmt.Errorf("stop")
	}

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/tool-1.0.zip", "--version=1.0"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.True(t, got.Sandbox)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "test-token", got.Token)
}

type recordingMirror struct {
	objects map[string][]byte
	files   []string
}

func (m *recordingMirror) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	if b, ok := m.objects[key]; ok {
		return b, nil
	}
	return []byte(`{"entries":[]}`), nil
}

func (m *recordingMirror) UploadBytes(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	return nil
}

func (m *recordingMirror) Key(filename string) string { return "releases/" + filename }

func (m *recordingMirror) UploadFile(ctx context.Context, key, localPath, contentType string) error {
	m.files = append(m.files, key)
	return nil
}

func (m *recordingMirror) CopyToLatest(ctx context.Context, srcKey, filename string) error {
	return nil
}

func (m *recordingMirror) KeyForVersion(version, filename string) string {
	return "releases/" + version + "/" + filename
}

func TestUploadMirrorsToBucket(t *testing.T) {
	setupUploadEnv(t)
	fz := newFakeZenodo(t)

	orig := newMirror
	t.Cleanup(func() { newMirror = orig })
	mirror := &recordingMirror{objects: map[string][]byte{}}
	var gotBucket string
	newMirror = func(ctx context.Context, cfg cfgpkg.Config) (release.Mirror, error) {
		gotBucket = cfg.MirrorBucket
		return mirror, nil
	}

	var stdout, stderr bytes.Buffer
	code := execute([]string{"upload", "dist/*", "--version=2.0", "--mirror-bucket=artifacts", "--base-url=" + fz.srv.URL}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "artifacts", gotBucket)
	assert.Equal(t, []string{"releases/2.0/tool-1.0.tar.gz", "releases/2.0/tool-1.0.zip"}, mirror.files)
	assert.Contains(t, mirror.objects, "releases/2.0/record.json")
	assert.Contains(t, mirror.objects, "releases/releases.json")
}
