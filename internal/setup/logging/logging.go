// Package logging builds the application's zap loggers. Each run writes to
// the console and to a timestamped file under the log directory, with old
// files pruned past the configured limit.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytegrab/bytegrab/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggers returns the main and database loggers. The database logger
// carries per-query detail and is kept separate so its volume can be tuned
// without drowning application logs.
func NewLoggers(cfg *config.Debug, logDir string) (*zap.Logger, *zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	mainLogger, err := newLogger(level, logDir, "main")
	if err != nil {
		return nil, nil, err
	}

	dbLogger, err := newLogger(level, logDir, "database")
	if err != nil {
		return nil, nil, err
	}

	if err := pruneOldLogs(logDir, cfg.MaxLogsToKeep); err != nil {
		mainLogger.Warn("Failed to prune old log files", zap.Error(err))
	}

	return mainLogger, dbLogger, nil
}

func newLogger(level zapcore.Level, logDir, name string) (*zap.Logger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logPath := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", name, time.Now().Format("20060102_150405")))

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(logFile),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// pruneOldLogs removes the oldest log files once the directory holds more
// than keep entries. A zero or negative keep disables pruning.
func pruneOldLogs(logDir string, keep int) error {
	if logDir == "" || keep <= 0 {
		return nil
	}

	entries, err := filepath.Glob(filepath.Join(logDir, "*.log"))
	if err != nil {
		return err
	}

	if len(entries) <= keep {
		return nil
	}

	sort.Strings(entries)

	for _, path := range entries[:len(entries)-keep] {
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	return nil
}
