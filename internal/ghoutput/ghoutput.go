// Package ghoutput writes a published record in the form CI pipelines
// consume: a collapsible log group with the record JSON and one key=value
// output per record link.
package ghoutput

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"zenodex/internal/zenodo"
)

// OutputFileEnv names the file GitHub Actions reads step outputs from.
const OutputFileEnv = "GITHUB_OUTPUT"

// Writer emits the record to Stdout and the link outputs to OutputFile when
// set, or to Stdout otherwise.
type Writer struct {
	Stdout     io.Writer
	OutputFile string
}

// FromEnv returns a Writer for stdout and $GITHUB_OUTPUT.
func FromEnv() *Writer {
	return &Writer{Stdout: os.Stdout, OutputFile: os.Getenv(OutputFileEnv)}
}

// WriteRecord prints the record and its links.
func (w *Writer) WriteRecord(rec zenodo.Record) error {
	pretty, err := rec.Pretty()
	if err != nil {
		return fmt.Errorf("format record: %w", err)
	}
	if _, err := fmt.Fprintf(w.Stdout, "::group::Record\n%s\n::endgroup::\n", pretty); err != nil {
		return err
	}
	return w.WriteOutputs(rec.Links)
}

// WriteOutputs emits one key=value line per entry, sorted by key.
func (w *Writer) WriteOutputs(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	out := w.Stdout
	if w.OutputFile != "" {
		f, err := os.OpenFile(w.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", OutputFileEnv, err)
		}
		defer f.Close()
		out = f
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "%s=%s\n", k, sanitize(values[k])); err != nil {
			return err
		}
	}
	return nil
}

// sanitize keeps a value on a single output line.
func sanitize(v string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(v)
}
