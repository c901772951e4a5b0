package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingLogger writes log output to one file per ISO week, removing
// files older than the retention period and starting a fresh file when
// the current one exceeds maxFileSize.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize int64
	part        int

	done chan struct{}
	once sync.Once
}

// NewRotatingLogger creates a rotating logger with a default 100MB size cap.
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, 100*1024*1024)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger with a custom size cap.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		done:        make(chan struct{}),
	}
}

// weekKey returns the ISO week key in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer. It rotates on week change and on size cap
// before appending.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	if rl.currentFile == nil || week != rl.currentWeek {
		rl.part = 0
		if err := rl.rotate(week); err != nil {
			return 0, err
		}
	} else if rl.maxFileSize > 0 && rl.currentSize+int64(len(p)) > rl.maxFileSize {
		rl.part++
		if err := rl.rotate(week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize += int64(n)
	return n, err
}

// rotate opens the log file for week, closing the previous one. Caller
// must hold mu.
func (rl *RotatingLogger) rotate(week string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
	}

	name := fmt.Sprintf("app-%s.log", week)
	if rl.part > 0 {
		name = fmt.Sprintf("app-%s.%d.log", week, rl.part)
	}
	path := filepath.Join(rl.logDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.currentFile = file
	rl.currentWeek = week
	rl.currentSize = 0
	if info, err := file.Stat(); err == nil {
		rl.currentSize = info.Size()
	}
	return nil
}

// CleanupOldLogs removes log files older than the retention period.
func (rl *RotatingLogger) CleanupOldLogs() error {
	dirEntries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "app-") || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, entry.Name())); err == nil {
				deleted++
			}
		}
	}

	if deleted > 0 {
		// Console only, to avoid logging through the file being cleaned
		fmt.Printf("Cleaned up %d old log files\n", deleted)
	}
	return nil
}

// Close stops background cleanup and closes the current file.
func (rl *RotatingLogger) Close() error {
	rl.once.Do(func() { close(rl.done) })

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}

// SetupLogger configures slog to log to both console and a rotating file,
// with a default 4 week retention.
func SetupLogger(logDir string) *slog.Logger {
	return SetupLoggerWithRetention(logDir, 4)
}

// SetupLoggerWithRetention configures slog with a custom retention period.
// If the log directory cannot be used, logging falls back to console only.
func SetupLoggerWithRetention(logDir string, retentionWeeks int) *slog.Logger {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory, console only", "error", err)
		return logger
	}

	rotating := NewRotatingLogger(logDir, retentionWeeks)

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rotating.done:
				return
			case <-ticker.C:
				if err := rotating.CleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
				}
			}
		}
	}()

	// Console gets text format, file gets JSON for easier parsing
	fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
}

var _ io.Writer = (*RotatingLogger)(nil)
