// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap loggers shared by the CLI, the API and the
// worker pool.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/fulltext/pkg/types"
)

// Standard field names for structured logging.
const (
	FieldPaperID = "paper_id"
	FieldIDType  = "id_type"
	FieldTaskID  = "task_id"
	FieldHandler = "handler"
	FieldAttempt = "attempt"
	FieldError   = "error"
	FieldVersion = "version"
)

// New returns a sugared logger configured by cfg. JSON output uses the zap
// production encoder; otherwise a console encoder writes to stderr so that
// command output on stdout stays machine readable.
func New(cfg types.LogConfig) (*zap.SugaredLogger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.JSON {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zl, err := zc.Build()
		if err != nil {
			return nil, err
		}
		return zl.Sugar(), nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything. Used as the default for
// components constructed without a logger.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, err
	}
	return level, nil
}
