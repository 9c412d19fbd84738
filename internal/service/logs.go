package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// maxLogBytes bounds how much of the log file the viewer returns
const maxLogBytes = 1 << 20

// LogService reads and clears the persistent log file
type LogService struct {
	path   string
	logger *logger.Logger
}

// NewLogService creates a log service for the logger's file sink
func NewLogService(log *logger.Logger) *LogService {
	return &LogService{
		path:   log.FilePath(),
		logger: log.WithComponent("log-service"),
	}
}

// Enabled reports whether a log file is configured
func (s *LogService) Enabled() bool {
	return s.path != ""
}

// Read returns the tail of the log file; a missing file reads as empty
func (s *LogService) Read() (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() > maxLogBytes {
		if _, err := f.Seek(info.Size()-maxLogBytes, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to seek log file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	return string(data), nil
}

// Clear truncates the log file
func (s *LogService) Clear() error {
	if !s.Enabled() {
		return nil
	}
	if err := os.Truncate(s.path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear log file: %w", err)
	}
	s.logger.Info("Log file cleared")
	return nil
}
