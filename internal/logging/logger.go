// Package logging provides category-scoped structured logging for boardpilot.
// Each pipeline stage logs under its own category so a single request can be
// traced stage by stage via the request ID field.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one pipeline stage for log scoping.
type Category string

const (
	CategoryContext   Category = "context"   // snapshot assembly and caching
	CategoryInterpret Category = "interpret" // pattern matching and merge
	CategoryOracle    Category = "oracle"    // language-model calls
	CategoryMapper    Category = "mapper"    // interpretation -> API operation
	CategoryValidate  Category = "validate"  // validation layers
	CategoryExecute   Category = "execute"   // dispatch, retry, recovery
	CategoryBatch     Category = "batch"     // batch windows and pacing
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	byName  = map[Category]*zap.Logger{}
	verbose bool
)

// Initialize installs the process-wide root logger. level is one of
// debug/info/warn/error; json selects JSON output over console encoding.
// Safe to call more than once; later calls replace the root.
func Initialize(level string, json bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	byName = map[Category]*zap.Logger{}
	verbose = lvl == zapcore.DebugLevel
	return nil
}

// For returns the logger for a category, creating it on first use.
func For(c Category) *zap.Logger {
	mu.RLock()
	if l, ok := byName[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := byName[c]; ok {
		return l
	}
	l := root.Named(string(c))
	byName[c] = l
	return l
}

// Verbose reports whether debug logging is enabled. Used to skip expensive
// prompt/response dumps in the oracle client.
func Verbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
