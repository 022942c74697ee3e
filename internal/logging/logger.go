// Package logging builds the zap loggers used across mandala.
// Every component logs under a Category, which becomes the zap logger name and
// can be switched off in the logging.categories config map. All output goes to
// stderr so stdout stays reserved for command results.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mandala/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Config and logger setup
	CategoryCLI      Category = "cli"      // Command dispatch and output
	CategoryGrid     Category = "grid"     // Grid construction and validation
	CategoryDocument Category = "document" // Document read/write
	CategoryPrompt   Category = "prompt"   // Prompt composition
	CategoryMirror   Category = "mirror"   // Comparison and reflection
)

// DefaultLevel applies when logging.level is empty.
const DefaultLevel = zapcore.WarnLevel

var (
	base      = zap.NewNop()
	cfg       config.LoggingConfig
	loggers   = make(map[Category]*zap.Logger)
	loggersMu sync.RWMutex
)

// BuildConfig translates the logging section into a zap.Config. verbose forces
// the debug level regardless of logging.level.
func BuildConfig(lc config.LoggingConfig, verbose bool) (zap.Config, error) {
	level := DefaultLevel
	if lc.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(lc.Level))
		if err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.DisableCaller = !verbose
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	switch strings.ToLower(lc.Format) {
	case "json":
		zc.Encoding = "json"
	case "", "console":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q", lc.Format)
	}
	return zc, nil
}

// Initialize builds the root logger from lc and installs it for Get.
// Call Sync before exit.
func Initialize(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc, err := BuildConfig(lc, verbose)
	if err != nil {
		return nil, err
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetBase(l, lc)
	Get(CategoryBoot).Debug("logger initialized",
		zap.String("level", zc.Level.String()),
		zap.String("encoding", zc.Encoding))
	return l, nil
}

// SetBase installs l as the root logger and resets the category cache.
func SetBase(l *zap.Logger, lc config.LoggingConfig) {
	if l == nil {
		l = zap.NewNop()
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = l
	cfg = lc
	loggers = make(map[Category]*zap.Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) the named logger for category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		l = base.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes the root logger. Errors from syncing a terminal are ignored.
func Sync() {
	loggersMu.RLock()
	l := base
	loggersMu.RUnlock()
	_ = l.Sync()
}

// Timer measures one operation and logs its duration at debug level.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing operation under category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug(t.operation+" completed", zap.Duration("elapsed", elapsed))
	return elapsed
}
