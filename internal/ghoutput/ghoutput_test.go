package ghoutput

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenodex/internal/zenodo"
)

func testRecord(t *testing.T) zenodo.Record {
	t.Helper()
	var rec zenodo.Record
	raw := `{"id":7,"doi":"10.5281/zenodo.7","links":{"html":"https://zenodo.org/records/7","badge":"https://zenodo.org/badge/doi/10.5281/zenodo.7.svg"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestWriteRecordToStdout(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{Stdout: &buf}
	require.NoError(t, w.WriteRecord(testRecord(t)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "::group::Record\n{\n    \"id\": 7,"))
	assert.Contains(t, out, "::endgroup::\nbadge=https://zenodo.org/badge/doi/10.5281/zenodo.7.svg\nhtml=https://zenodo.org/records/7\n")
}

func TestWriteOutputsAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_output")
	require.NoError(t, os.WriteFile(path, []byte("previous=1\n"), 0o644))

	var buf bytes.Buffer
	w := &Writer{Stdout: &buf, OutputFile: path}
	require.NoError(t, w.WriteRecord(testRecord(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous=1\nbadge=https://zenodo.org/badge/doi/10.5281/zenodo.7.svg\nhtml=https://zenodo.org/records/7\n", string(data))
	assert.NotContains(t, buf.String(), "html=")
}

func TestWriteOutputsKeepsSingleLine(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{Stdout: &buf}
	require.NoError(t, w.WriteOutputs(map[string]string{"a": "x\ny"}))
	assert.Equal(t, "a=x y\n", buf.String())
}

func TestFromEnv(t *testing.T) {
	t.Setenv(OutputFileEnv, "/tmp/out")
	w := FromEnv()
	assert.Equal(t, "/tmp/out", w.OutputFile)
}
