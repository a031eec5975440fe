// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/socratic-labs/dialogue/internal/config"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs a JSON slog logger as the default. Output always goes to
// stdout; when cfg.File is set it is also written to a rotating file.
// The returned close func releases the file.
func Setup(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	return setup(os.Stdout, cfg)
}

func setup(stdout io.Writer, cfg config.LogConfig) (*slog.Logger, func() error, error) {
	out := stdout
	closeFn := func() error { return nil }

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, rotator)
		closeFn = rotator.Close
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.Level,
	}))
	slog.SetDefault(logger)

	return logger, closeFn, nil
}
