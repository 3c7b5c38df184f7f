// Package logger provides the printf-style logging used throughout the switcher.
//
// Records are written through log/slog with a tint handler so the console output
// is coloured when attached to a terminal and plain otherwise.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// String returns the upper case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
// Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger writes formatted messages to a single output.
type Logger struct {
	level *slog.LevelVar
	log   *slog.Logger
}

// New creates a logger writing to w at INFO level.
func New(w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	})

	return &Logger{
		level: level,
		log:   slog.New(handler),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

func (l *Logger) write(level LogLevel, format string, args ...any) {
	ctx := context.Background()
	lvl := level.slogLevel()
	if !l.log.Enabled(ctx, lvl) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if level == FATAL {
		msg = "FATAL: " + msg
	}
	l.log.Log(ctx, lvl, msg)
}

func (l *Logger) Debug(format string, args ...any) { l.write(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.write(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.write(WARN, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.write(ERROR, format, args...) }

// Fatal logs the message and terminates the process.
func (l *Logger) Fatal(format string, args ...any) {
	l.write(FATAL, format, args...)
	os.Exit(1)
}

var current atomic.Pointer[Logger]

func init() {
	current.Store(New(os.Stderr))
}

// Init replaces the package logger with one writing to w. A nil writer means stderr.
func Init(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	current.Store(New(w))
}

// GetLogger returns the package logger.
func GetLogger() *Logger {
	return current.Load()
}

func Debug(format string, args ...any) { GetLogger().Debug(format, args...) }
func Info(format string, args ...any)  { GetLogger().Info(format, args...) }
func Warn(format string, args ...any)  { GetLogger().Warn(format, args...) }
func Error(format string, args ...any) { GetLogger().Error(format, args...) }
func Fatal(format string, args ...any) { GetLogger().Fatal(format, args...) }
