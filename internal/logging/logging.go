package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Setup installs the process-wide slog default. format is "json" (zap production
// encoder) or "text". The returned func flushes buffered log entries.
func Setup(level, format string) (func(), error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
		slog.SetDefault(slog.New(h))
		return func() {}, nil
	case "", "json":
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapLevel(lvl))
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("building zap logger: %w", err)
		}
		slog.SetDefault(slog.New(zapslog.NewHandler(logger.Core())))
		return func() { _ = logger.Sync() }, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
