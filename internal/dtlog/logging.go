// Package dtlog provides the slog-based structured logger shared across
// dockertree's components. A logging handle is passed as a collaborator to
// components that need it rather than referenced globally, per the
// no-hidden-global-state design note — the package-level functions here
// exist only for CLI bootstrap (main, root command) before a handle has
// been threaded through.
package dtlog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu        sync.RWMutex
	levelVar  = new(slog.LevelVar)
	logger    = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

func init() {
	levelVar.Set(slog.LevelInfo)
}

// SetVerbose toggles debug-level logging for the default logger.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Configure replaces the default logger's handler, used by the CLI to
// switch to JSON-structured logs under --json.
func Configure(w *os.File, json bool) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: levelVar}
	if json {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// Default returns the shared logger handle.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a logger scoped with the given key/value attributes, for
// components that want to tag all their log lines (e.g. with branch name).
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}
