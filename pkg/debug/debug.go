// Package debug provides conditional debug logging for tourdesk.
//
// Debug logging is enabled by setting the TOURDESK_DEBUG environment variable:
//
//	TOURDESK_DEBUG=1 tourdesk --domain news
//
// When enabled, debug messages are written to stderr (or the file named by
// TOURDESK_DEBUG_FILE, since the TUI owns the terminal) with timestamps.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("loaded %d categories", n)
//	defer debug.LogEnterExit("store.Create")()
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[TOURDESK] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("TOURDESK_DEBUG") == "" {
		return
	}
	var out io.Writer = os.Stderr
	if path := os.Getenv("TOURDESK_DEBUG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	enabled = true
	logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, prefix, 0)
}

func get() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if l := get(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := get(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	l := get()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if l := get(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}
