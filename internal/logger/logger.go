package logger

import (
	"io"
	"log/slog"
	"os"

	"pdf-rag-platform/internal/config"
)

var Logger *slog.Logger

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.GinMode == "debug",
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	Logger = slog.New(handler).With("service", cfg.ServiceName)
	slog.SetDefault(Logger)

	Logger.Info("Structured logging initialized", "level", level.String())
}

// Or returns l when set, the package logger when initialized, and a discard
// logger otherwise. Core packages use it to accept an optional *slog.Logger.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	if Logger != nil {
		return Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
