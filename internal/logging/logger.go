// Package logging configures slog for the telemetry services.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init configures slog to log to stdout and, when LOG_DIR is set, a service
// log file as well. It returns the logger and the file so callers can Close()
// on shutdown; the file is nil when logging to stdout only.
func Init(service string) (*slog.Logger, *os.File) {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		return logger.With(slog.String("service", service)), nil
	}

	_ = os.MkdirAll(logDir, 0o755)
	filePath := filepath.Join(logDir, service+".log")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		logger.Error("failed to open log file; falling back to stdout only", slog.Any("err", err))
		return logger.With(slog.String("service", service)), nil
	}

	mw := io.MultiWriter(f, os.Stdout)
	logger := slog.New(slog.NewTextHandler(mw, &slog.HandlerOptions{Level: level}))

	// Align the legacy stdlib log output too.
	log.SetOutput(mw)
	return logger.With(slog.String("service", service)), f
}
