// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads service settings from a viper instance populated by
// the CLI (config file, FULLTEXT_* environment variables, flags).
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/pdiddy/fulltext/pkg/types"
)

// EnvPrefix is prepended to every environment variable, so engine.workers
// is read from FULLTEXT_ENGINE_WORKERS.
const EnvPrefix = "FULLTEXT"

// SetDefaults registers every recognized key with its default. Keys must be
// known to viper for AutomaticEnv to apply during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage_volume", "/tmp/storage")

	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.user_agent", "fulltext/"+types.ExtractorVersion)
	v.SetDefault("http.rate", 1.0)
	v.SetDefault("http.max_document_bytes", 100<<20)

	v.SetDefault("sources.allowlist", []string{"arxiv.org", "export.arxiv.org"})

	v.SetDefault("extractor.backend", string(types.BackendContainer))
	v.SetDefault("extractor.image", "arxiv/fulltext-extractor:"+types.ExtractorVersion)

	v.SetDefault("events.stream", "PDFIsAvailable")
	v.SetDefault("events.endpoint", "")

	v.SetDefault("engine.workers", 2)
	v.SetDefault("engine.poll_interval", time.Second)
	v.SetDefault("engine.max_attempts", 3)
	v.SetDefault("engine.retry_backoff", 5*time.Second)
	v.SetDefault("engine.orphan_after", 30*time.Minute)

	v.SetDefault("server.addr", ":8000")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// BindEnv wires FULLTEXT_* environment variables onto nested keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decoding configuration")
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func Validate(cfg types.Config) error {
	switch {
	case cfg.StorageVolume == "":
		return errors.New("storage_volume must not be empty")
	case len(cfg.Sources.Allowlist) == 0:
		return errors.WithHint(
			errors.New("sources.allowlist must not be empty"),
			"set FULLTEXT_SOURCES_ALLOWLIST to a comma-separated list of hosts",
		)
	case cfg.Engine.Workers < 1:
		return errors.Newf("engine.workers must be at least 1, got %d", cfg.Engine.Workers)
	case cfg.Engine.MaxAttempts < 1:
		return errors.Newf("engine.max_attempts must be at least 1, got %d", cfg.Engine.MaxAttempts)
	case cfg.HTTP.RequestsPerSecond <= 0:
		return errors.Newf("http.rate must be positive, got %v", cfg.HTTP.RequestsPerSecond)
	case cfg.HTTP.MaxDocumentBytes <= 0:
		return errors.Newf("http.max_document_bytes must be positive, got %d", cfg.HTTP.MaxDocumentBytes)
	}

	switch cfg.Extractor.Backend {
	case types.BackendContainer:
		if cfg.Extractor.Image == "" {
			return errors.New("extractor.image is required for the container backend")
		}
	case types.BackendPdftotext:
	default:
		return errors.Newf("unsupported extractor.backend %q: use container or pdftotext", cfg.Extractor.Backend)
	}
	return nil
}
