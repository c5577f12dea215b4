// Package logging provides config-driven categorized logging for proxeek.
// Every category is a named child of one zap base logger; categories can be
// muted individually through the logging.categories config map.
package logging

import (
	"fmt"
	"sync"

	"proxeek/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config resolution
	CategoryLoader Category = "loader" // Input documents, rosters, matrices
	CategoryLoss   Category = "loss"   // Loss model evaluation
	CategorySearch Category = "search" // Assignment search
	CategoryReport Category = "report" // Result documents
	CategoryStore  Category = "store"  // Run history
	CategoryWatch  Category = "watch"  // Input watcher
)

// Logger wraps a zap SugaredLogger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*Logger)
)

// Initialize builds the base zap logger from cfg and installs it.
// The returned logger is the same base, for callers that log directly with zap fields.
func Initialize(lc config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if lc.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.DisableStacktrace = true
	}

	level, err := zap.ParseAtomicLevel(lc.EffectiveLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	zc.Level = level

	zc.OutputPaths = []string{"stderr"}
	if lc.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, lc.File)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	base = l
	cfg = lc
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	return l, nil
}

// SetBase installs l as the base logger, keeping the current category filter.
// Tests use it with zap.NewNop() or an observer core.
func SetBase(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	loggers = make(map[Category]*Logger)
	mu.Unlock()
}

// SetCategories replaces the per-category toggles.
func SetCategories(categories map[string]bool) {
	mu.Lock()
	cfg.Categories = categories
	loggers = make(map[Category]*Logger)
	mu.Unlock()
}

// Base returns the current base logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var z *zap.Logger
	if cfg.IsCategoryEnabled(string(category)) {
		z = base.Named(string(category))
	} else {
		z = zap.NewNop()
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Category returns the logger's category.
func (l *Logger) Category() Category {
	return l.category
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying the given structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the base logger.
func Sync() error {
	return Base().Sync()
}

// Convenience functions for the busiest categories

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func Loader(format string, args ...interface{}) {
	Get(CategoryLoader).Info(format, args...)
}

func LoaderWarn(format string, args ...interface{}) {
	Get(CategoryLoader).Warn(format, args...)
}

func Search(format string, args ...interface{}) {
	Get(CategorySearch).Info(format, args...)
}

func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).Debug(format, args...)
}

func SearchWarn(format string, args ...interface{}) {
	Get(CategorySearch).Warn(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}
