// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// Logger is the structured logger of the module.
type Logger = *slog.Logger

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(DiscardHandler()))
}

// SetDefault replaces the root logger. Logging is discarded until a handler
// is installed here.
func SetDefault(l Logger) {
	root.Store(l)
}

// Root returns the root logger.
func Root() Logger {
	return root.Load()
}

// WithContext returns a logger carrying the given key/value context.
func WithContext(args ...any) Logger {
	return Root().With(args...)
}

// New creates a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Debug logs at the debug level on the root logger.
func Debug(msg string, args ...any) { Root().Debug(msg, args...) }

// Info logs at the info level on the root logger.
func Info(msg string, args ...any) { Root().Info(msg, args...) }

// Warn logs at the warn level on the root logger.
func Warn(msg string, args ...any) { Root().Warn(msg, args...) }

// Error logs at the error level on the root logger.
func Error(msg string, args ...any) { Root().Error(msg, args...) }
