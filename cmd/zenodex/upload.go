package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	cfgpkg "zenodex/internal/config"
	"zenodex/internal/ghoutput"
	"zenodex/internal/metadata"
	"zenodex/internal/release"
	"zenodex/internal/storage"
	"zenodex/internal/zenodo"
)

var newAPI = func(cfg cfgpkg.Config) (release.API, error) {
	return zenodo.New(cfg.Token, zenodo.WithSandbox(cfg.Sandbox), zenodo.WithBaseURL(cfg.BaseURL))
}

var newMirror = func(ctx context.Context, cfg cfgpkg.Config) (release.Mirror, error) {
	return storage.New(ctx, cfg.MirrorBucket, cfg.MirrorPrefix, cfg.Region)
}

type uploadFlags struct {
	common       commonFlags
	template     string
	version      string
	doi          string
	sandbox      bool
	baseURL      string
	mirrorBucket string
	mirrorPrefix string
	region       string
}

// zenodex upload
func newUploadCmd() *cobra.Command {
	var uf uploadFlags
	cmd := &cobra.Command{
		Use:   "upload <archive>",
		Short: "Upload an archive to Zenodo and publish it",
		Long: `Upload one or more release archives to Zenodo and publish the record.

The archive argument may be a glob pattern such as "dist/*.tar.gz"; every
match is attached to the same record. With --doi the archives are published
as a new version of the record identified by that concept DOI.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{fmt.Errorf("expected exactly one archive path or pattern, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, uf, args[0])
		},
	}
	fs := cmd.Flags()
	addCommonFlags(fs, &uf.common)
	fs.StringVar(&uf.template, "zenodo-json", metadata.DefaultTemplate, "Path to the metadata template (json or yaml)")
	fs.StringVar(&uf.version, "version", "", "Software version to publish (required)")
	fs.StringVar(&uf.doi, "doi", "", "Concept DOI of an existing record to publish a new version of")
	fs.BoolVar(&uf.sandbox, "sandbox", false, "Use sandbox.zenodo.org instead of zenodo.org")
	fs.StringVar(&uf.baseURL, "base-url", "", "Override the Zenodo API host")
	fs.StringVar(&uf.mirrorBucket, "mirror-bucket", "", "S3 bucket that receives a copy of the release")
	fs.StringVar(&uf.mirrorPrefix, "mirror-prefix", "", "S3 key prefix for mirrored releases")
	fs.StringVar(&uf.region, "region", "", "AWS region of the mirror bucket (defaults from env)")
	_ = fs.MarkHidden("base-url")
	return cmd
}

func runUpload(cmd *cobra.Command, uf uploadFlags, archive string) error {
	if uf.version == "" {
		return usageError{errors.New("you must provide a software version to upload (--version)")}
	}
	fs := cmd.Flags()

	if err := cfgpkg.LoadDotEnv(uf.common.envFile); err != nil {
		return err
	}
	fileCfg, err := cfgpkg.LoadFile(uf.common.config)
	if err != nil {
		return err
	}
	envOv, token := cfgpkg.FromEnv()
	flagOv := cfgpkg.Overrides{
		Template:     stringOverride(fs, "zenodo-json", uf.template),
		Sandbox:      boolOverride(fs, "sandbox", uf.sandbox),
		BaseURL:      stringOverride(fs, "base-url", uf.baseURL),
		MirrorBucket: stringOverride(fs, "mirror-bucket", uf.mirrorBucket),
		MirrorPrefix: stringOverride(fs, "mirror-prefix", uf.mirrorPrefix),
		Region:       stringOverride(fs, "region", uf.region),
		LogLevel:     stringOverride(fs, "log-level", uf.common.logLevel),
	}
	cfg := cfgpkg.Merge(fileCfg, envOv, flagOv, token)
	setupLogger(cfg.LogLevel, cmd.ErrOrStderr())

	if err := cfgpkg.ValidateForUpload(cfg); err != nil {
		return err
	}

	api, err := newAPI(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := release.Options{
		Archives:         archive,
		Template:         cfg.Template,
		TemplateRequired: fs.Changed("zenodo-json") || cfg.Template != metadata.DefaultTemplate,
		Version:          uf.version,
		ConceptDOI:       uf.doi,
	}
	if cfg.MirrorBucket != "" {
		m, err := newMirror(ctx, cfg)
		if err != nil {
			return err
		}
		opts.Mirror = m
	}

	slog.Info("upload start", "archive", archive, "version", uf.version, "doi", uf.doi, "sandbox", cfg.Sandbox)
	res, runErr := release.Run(ctx, api, opts)
	if res.Record.ID != 0 {
		if err := writeRecord(cmd.OutOrStdout(), res.Record); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}
	slog.Info("upload completed", "record", res.Record.ID, "doi", res.Record.DOI, "files", len(res.Archives))
	return nil
}

func writeRecord(stdout io.Writer, rec zenodo.Record) error {
	w := ghoutput.FromEnv()
	w.Stdout = stdout
	return w.WriteRecord(rec)
}
