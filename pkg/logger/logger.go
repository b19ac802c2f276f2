// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// DefaultLogFile is where n8nctl writes its structured log when the
// directory is writable; otherwise we fall back to stderr only.
const DefaultLogFile = "/var/log/n8nctl/n8nctl.log"

// DefaultConfig returns the standard zap configuration for n8nctl.
func DefaultConfig(outputPaths []string) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "json"
	cfg.OutputPaths = outputPaths
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// InitializeWithFallback builds the global logger, preferring the log file
// and degrading to stderr-only when the path cannot be created.
func InitializeWithFallback() {
	paths := []string{"stderr"}
	if err := ensureLogFile(DefaultLogFile); err == nil {
		paths = append(paths, DefaultLogFile)
	}

	built, err := DefaultConfig(paths).Build()
	if err != nil {
		// Last resort: a no-op logger beats a nil one.
		built = zap.NewNop()
	}

	log = built
	zap.ReplaceGlobals(log)
}

// InitFallback installs a stderr-only logger when nothing has been
// initialized yet. Safe to call repeatedly.
func InitFallback() {
	if log != nil {
		return
	}
	built, err := DefaultConfig([]string{"stderr"}).Build()
	if err != nil {
		built = zap.NewNop()
	}
	log = built
	zap.ReplaceGlobals(log)
}

// L returns the global logger, initializing a fallback if needed.
func L() *zap.Logger {
	if log == nil {
		InitFallback()
	}
	return log
}

// Sync flushes buffered log entries.
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}

func ensureLogFile(logFilePath string) error {
	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}
