// Package logger provides verbose logging for the Forager CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to show what the ingestion pipeline and the
// agent loop are doing. Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf writes a prefixed line, optionally gated on verbose mode.
func logf(gated bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if gated && !verbose {
		return
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(true, "[DEBUG] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(true, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf(true, "[WARN] ", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf(false, "[ERROR] ", format, args...)
}

// Scoped prefixes every message with a fixed tag such as "session=abc".
type Scoped struct {
	tag string
}

// With returns a logger that tags each message with key=value.
func With(key, value string) Scoped {
	return Scoped{tag: "[" + key + "=" + value + "] "}
}

// Debug prints a tagged debug message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	logf(true, "[DEBUG] "+s.tag, format, args...)
}

// Info prints a tagged informational message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	logf(true, "[INFO] "+s.tag, format, args...)
}

// Warn prints a tagged warning if verbose mode is enabled.
func (s Scoped) Warn(format string, args ...any) {
	logf(true, "[WARN] "+s.tag, format, args...)
}

// Preview shortens s to at most n bytes for log output.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
