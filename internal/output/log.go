// SPDX-License-Identifier: MPL-2.0

// Package output owns the process-wide diagnostic logger.
package output

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, false)
)

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		ReportCaller:    verbose,
		TimeFormat:      "15:04:05",
	})
}

// SetupLoggingTo configures the logger to write to w. Verbose output enables
// debug messages with timestamps and caller locations.
func SetupLoggingTo(w io.Writer, verbose bool) {
	l := newLogger(w, verbose)
	mu.Lock()
	logger = l
	mu.Unlock()
	log.SetDefault(l)
}

// For returns the logger with a component prefix, e.g. "bundle".
func For(component string) *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.WithPrefix(component)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Warn(msg, keyvals...)
}
