// Package logging provides the structured logging service for the regimen
// API: a global slog logger writing to console and a weekly rotating file.
package logging

import (
	"context"
	"log/slog"
	"os"
)

type LoggingService struct {
	Logger *slog.Logger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance
func InitLogger(logDir string) {
	DefaultLoggingService = &LoggingService{
		Logger: SetupLogger(logDir),
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logWith(slog.LevelInfo, msg, args...)
}

func Warn(msg string, args ...any) {
	logWith(slog.LevelWarn, msg, args...)
}

func Error(msg string, args ...any) {
	logWith(slog.LevelError, msg, args...)
}

func Debug(msg string, args ...any) {
	logWith(slog.LevelDebug, msg, args...)
}

func logWith(level slog.Level, msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		fallback := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		fallback.Log(context.Background(), level, msg, args...)
		return
	}
	DefaultLoggingService.Logger.Log(context.Background(), level, msg, args...)
}
