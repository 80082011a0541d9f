// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the leveled event logger shared by crewchat packages.
//
// Lines are written as "[LEVEL] EVENT_NAME | key=value key=value" so they can
// be grepped by event name.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// LEVELS
// =============================================================================

// Level is a logging verbosity level.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the upper-case level tag.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "LEVEL(" + fmt.Sprint(int(l)) + ")"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger writes leveled event lines. A nil *Logger discards everything,
// so components can accept one without nil checks at every call site.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    *log.Logger
	closer io.Closer
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		level: level,
		out:   log.New(w, "", log.LstdFlags),
	}
}

// NewFile creates a logger appending to the file at path.
// The parent directory is created if needed.
func NewFile(path string, level Level) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := New(f, level)
	l.closer = f
	return l, nil
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// SetLevel changes the verbosity.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Enabled reports whether lines at level would be written.
func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return level <= l.level
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Error logs an event at error level.
func (l *Logger) Error(event string, kv ...interface{}) { l.emit(LevelError, event, kv) }

// Warn logs an event at warn level.
func (l *Logger) Warn(event string, kv ...interface{}) { l.emit(LevelWarn, event, kv) }

// Info logs an event at info level.
func (l *Logger) Info(event string, kv ...interface{}) { l.emit(LevelInfo, event, kv) }

// Debug logs an event at debug level.
func (l *Logger) Debug(event string, kv ...interface{}) { l.emit(LevelDebug, event, kv) }

func (l *Logger) emit(level Level, event string, kv []interface{}) {
	if !l.Enabled(level) {
		return
	}
	l.out.Print(Format(level, event, kv...))
}

// Format renders one log line without the timestamp.
// Keys and values alternate; a trailing key without a value is printed as key=?.
func Format(level Level, event string, kv ...interface{}) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(event)
	if len(kv) == 0 {
		return b.String()
	}
	b.WriteString(" |")
	for i := 0; i < len(kv); i += 2 {
		b.WriteString(" ")
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteString("=")
		if i+1 < len(kv) {
			b.WriteString(formatValue(kv[i+1]))
		} else {
			b.WriteString("?")
		}
	}
	return b.String()
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\n") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
