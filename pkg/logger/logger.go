package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger to provide application-wide logging
type Logger struct {
	*zap.Logger
	filePath string
}

// New creates a new logger with the specified level and format
func New(level, format string) (*Logger, error) {
	return NewWithFile(level, format, "")
}

// NewWithFile creates a logger that additionally appends every entry to filePath.
// The file sink always uses a plain console encoding so it stays readable in the
// log viewer regardless of the stderr format.
func NewWithFile(level, format, filePath string) (*Logger, error) {
	var zapConfig zap.Config

	// Configure based on format
	if format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	opts := []zap.Option{
		zap.AddCallerSkip(1), // Skip one level to show correct caller
		zap.AddStacktrace(zapcore.ErrorLevel),
	}

	if filePath != "" {
		fileCore, err := newFileCore(filePath, zapConfig.Level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zapLogger, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{Logger: zapLogger, filePath: filePath}, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func newFileCore(filePath string, level zap.AtomicLevel) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), level), nil
}

// FilePath returns the path of the persistent log file, or "" when none is configured
func (l *Logger) FilePath() string {
	return l.filePath
}

// parseLevel converts string level to zapcore.Level
func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// WithError returns a logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(zap.Error(err)), filePath: l.filePath}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(zap.String("component", component)), filePath: l.filePath}
}

// WithFeed returns a logger tagged with a feed identity and URL
func (l *Logger) WithFeed(feedID, feedURL string) *Logger {
	return &Logger{
		Logger:   l.With(zap.String("feed_id", feedID), zap.String("feed_url", feedURL)),
		filePath: l.filePath,
	}
}

// Named returns a logger with a name
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), filePath: l.filePath}
}

// Info logs a message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, convertToFields(keysAndValues)...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, convertToFields(keysAndValues)...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, convertToFields(keysAndValues)...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, convertToFields(keysAndValues)...)
}

// Fatal logs a fatal message with key-value pairs and exits
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.Logger.Fatal(msg, convertToFields(keysAndValues)...)
}

// convertToFields converts alternating key-value pairs to zap.Fields
func convertToFields(keysAndValues []interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			// Odd number of arguments, add the last key with nil value
			fields = append(fields, zap.Any(fmt.Sprint(keysAndValues[i]), nil))
			break
		}

		key := fmt.Sprint(keysAndValues[i])
		value := keysAndValues[i+1]

		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case int:
			fields = append(fields, zap.Int(key, v))
		case int64:
			fields = append(fields, zap.Int64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		case error:
			fields = append(fields, zap.NamedError(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	return fields
}
