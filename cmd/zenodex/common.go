package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// set up slog logger according to level; defaults to info. Logs go to w so
// that stdout only carries the record and build outputs.
func setupLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Common flags for config/env/log-level across subcommands
type commonFlags struct {
	config   string
	envFile  string
	logLevel string
}

func addCommonFlags(fs *pflag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.config, "config", "zenodex.yaml", "Path to config file (json, yaml or toml)")
	fs.StringVar(&cf.envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	fs.StringVar(&cf.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func stringOverride(fs *pflag.FlagSet, name, value string) *string {
	if !fs.Changed(name) {
		return nil
	}
	return &value
}

func boolOverride(fs *pflag.FlagSet, name string, value bool) *bool {
	if !fs.Changed(name) {
		return nil
	}
	return &value
}
