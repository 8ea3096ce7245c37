package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategorySession LogCategory = "session" // Session and download flow events (JSON)
	CategoryError   LogCategory = "error"   // Application errors (JSON)
)

// Categories lists every category written by MultiLogger
var Categories = []LogCategory{CategorySession, CategoryError}

// MultiLogger provides categorized logging with one dated file per category
type MultiLogger struct {
	config      MultiLoggerConfig
	level       zapcore.Level
	mu          sync.RWMutex
	loggers     map[LogCategory]*zap.Logger
	cores       map[LogCategory]zapcore.Core
	files       map[LogCategory]*os.File
	currentDate string
	now         func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		config: config,
		level:  level,
		now:    time.Now,
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.openLocked(); err != nil {
		return nil, err
	}

	return ml, nil
}

// openLocked creates the category loggers for the current date
func (ml *MultiLogger) openLocked() error {
	ml.currentDate = ml.now().Format("20060102")
	ml.loggers = make(map[LogCategory]*zap.Logger)
	ml.cores = make(map[LogCategory]zapcore.Core)
	ml.files = make(map[LogCategory]*os.File)

	for _, category := range Categories {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}

		core, file, err := ml.createStructuredCore(category, level)
		if err != nil {
			ml.closeFilesLocked()
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.cores[category] = core
		ml.files[category] = file
		ml.loggers[category] = zap.New(core)
	}

	return nil
}

// createStructuredCore creates a JSON core writing to a category file
func (ml *MultiLogger) createStructuredCore(category LogCategory, level zapcore.Level) (zapcore.Core, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "" // Don't include caller for cleaner logs

	encoder := zapcore.NewJSONEncoder(encoderConfig)

	file, err := os.OpenFile(ml.categoryLogPath(category), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(file), level), file, nil
}

func (ml *MultiLogger) categoryLogPath(category LogCategory) string {
	filename := fmt.Sprintf("%s-%s.log", category, ml.currentDate)
	return filepath.Join(ml.config.LogsDir, filename)
}

// rotate reopens the category files when the date has changed
func (ml *MultiLogger) rotate() {
	today := ml.now().Format("20060102")

	ml.mu.RLock()
	current := ml.currentDate
	ml.mu.RUnlock()
	if today == current {
		return
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if today == ml.currentDate {
		return
	}
	ml.syncLocked()
	ml.closeFilesLocked()
	if err := ml.openLocked(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to rotate event logs: %v\n", err)
	}
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.rotate()

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}

	// Return error logger as fallback
	if logger, ok := ml.loggers[CategoryError]; ok {
		return logger
	}
	return zap.NewNop()
}

// Session returns the session event logger (JSON format)
func (ml *MultiLogger) Session() *zap.Logger {
	return ml.GetLogger(CategorySession)
}

// Error returns the error logger (JSON format)
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogSessionEvent logs a session lifecycle event with structured data
func (ml *MultiLogger) LogSessionEvent(event string, fields ...zap.Field) {
	ml.Session().Info(event, fields...)
}

// Tee returns base extended so that its errors also land in the error file
func (ml *MultiLogger) Tee(base *zap.Logger) *zap.Logger {
	ml.mu.RLock()
	errorCore := ml.cores[CategoryError]
	ml.mu.RUnlock()

	if errorCore == nil {
		return base
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, errorCore)
	}))
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.syncLocked()
}

func (ml *MultiLogger) syncLocked() error {
	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ml *MultiLogger) closeFilesLocked() {
	for _, file := range ml.files {
		_ = file.Close()
	}
	ml.files = nil
}

// Close flushes and closes all category files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	lastErr := ml.syncLocked()
	ml.closeFilesLocked()
	ml.loggers = nil
	ml.cores = nil

	return lastErr
}
