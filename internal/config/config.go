package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds resolved configuration values after merging file, env, and flags.
type Config struct {
	Template     string `mapstructure:"template"`
	Sandbox      bool   `mapstructure:"sandbox"`
	BaseURL      string `mapstructure:"baseURL"`
	MirrorBucket string `mapstructure:"mirrorBucket"`
	MirrorPrefix string `mapstructure:"mirrorPrefix"`
	Region       string `mapstructure:"region"`
	LogLevel     string `mapstructure:"logLevel"`

	// Not persisted to file; sourced from env only.
	Token string `mapstructure:"-"`
}

// Overrides represents optional overrides from env or flags.
// Only non-nil pointers are applied during merge.
type Overrides struct {
	Template     *string
	Sandbox      *bool
	BaseURL      *string
	MirrorBucket *string
	MirrorPrefix *string
	Region       *string
	LogLevel     *string
}

func Default() Config {
	return Config{
		Template:     ".zenodo.json",
		MirrorPrefix: "releases",
		LogLevel:     "info",
	}
}

// LoadFile reads a config file (JSON, YAML or TOML, chosen by extension).
// If the file does not exist, returns defaults and no error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding variables
// already present in the environment. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads env vars and returns overrides and the Zenodo token.
func FromEnv() (Overrides, string) {
	var ov Overrides

	if v, ok := os.LookupEnv("ZENODEX_TEMPLATE"); ok {
		ov.Template = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("ZENODO_SANDBOX"); ok {
		if b, err := parseBool(v); err == nil {
			ov.Sandbox = &[]bool{b}[0]
		}
	}
	if v, ok := os.LookupEnv("ZENODO_BASE_URL"); ok {
		ov.BaseURL = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("ZENODEX_MIRROR_BUCKET"); ok {
		ov.MirrorBucket = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("ZENODEX_MIRROR_PREFIX"); ok {
		ov.MirrorPrefix = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("AWS_REGION"); ok {
		ov.Region = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("ZENODEX_LOG_LEVEL"); ok {
		ov.LogLevel = &[]string{v}[0]
	}
	return ov, strings.TrimSpace(os.Getenv("ZENODO_TOKEN"))
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, fmt.Errorf("empty bool")
	}
	if s == "1" || s == "t" || s == "true" || s == "y" || s == "yes" || s == "on" {
		return true, nil
	}
	if s == "0" || s == "f" || s == "false" || s == "n" || s == "no" || s == "off" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Merge applies overrides in order: file -> env -> flags.
func Merge(fileCfg Config, env Overrides, flags Overrides, token string) Config {
	cfg := fileCfg

	apply := func(ov Overrides) {
		if ov.Template != nil {
			cfg.Template = *ov.Template
		}
		if ov.Sandbox != nil {
			cfg.Sandbox = *ov.Sandbox
		}
		if ov.BaseURL != nil {
			cfg.BaseURL = *ov.BaseURL
		}
		if ov.MirrorBucket != nil {
			cfg.MirrorBucket = *ov.MirrorBucket
		}
		if ov.MirrorPrefix != nil {
			cfg.MirrorPrefix = *ov.MirrorPrefix
		}
		if ov.Region != nil {
			cfg.Region = *ov.Region
		}
		if ov.LogLevel != nil {
			cfg.LogLevel = *ov.LogLevel
		}
	}

	apply(env)
	apply(flags)

	cfg.Token = token
	return cfg
}

// ValidateForUpload checks the settings an upload run needs.
func ValidateForUpload(cfg Config) error {
	if cfg.Token == "" {
		return errors.New("ZENODO_TOKEN is required to be exported in the environment")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}
