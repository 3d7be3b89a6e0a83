package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zenodex/internal/zenodo"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return execute(args, os.Stdout, os.Stderr)
}

// execute runs the command tree and maps the outcome to an exit code:
// 0 on success, 2 for usage errors, 1 for everything else.
func execute(args []string, stdout, stderr io.Writer) int {
	var started bool
	root := newRootCmd(stdout, stderr, &started)
	root.SetArgs(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var uerr usageError
	if !started || errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		if cmd == nil {
			cmd = root
		}
		cmd.SetOut(stderr)
		_ = cmd.Usage()
		return 2
	}
	reportError(err)
	return 1
}

func newRootCmd(stdout, stderr io.Writer, started *bool) *cobra.Command {
	root := &cobra.Command{
		Use:           "zenodex",
		Short:         "Publish release archives to Zenodo",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			*started = true
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newUploadCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// usageError marks errors caused by invalid invocation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func reportError(err error) {
	var apiErr *zenodo.APIError
	if errors.As(err, &apiErr) {
		slog.Error("upload failed", "op", apiErr.Op, "status", apiErr.StatusCode, "body", apiErr.Body, "err", err)
		return
	}
	slog.Error("upload failed", "err", err)
}
