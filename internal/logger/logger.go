// Package logger is the leveled logger used at the edges of the service:
// HTTP handlers, session bookkeeping, configuration loading and the CLI.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel maps a level name to its Level. Unknown names give INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Config selects the level and the optional rotating file sink.
type Config struct {
	Level      string
	File       string // empty: stdout only
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Logger writes level-prefixed lines and drops anything below its level.
type Logger struct {
	mu      sync.RWMutex
	level   Level
	loggers map[Level]*log.Logger
	closer  io.Closer
}

// New builds a Logger writing to w.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{level: level, loggers: make(map[Level]*log.Logger, len(levelNames))}
	flags := log.LstdFlags | log.Lshortfile
	for lvl, name := range levelNames {
		l.loggers[lvl] = log.New(w, "["+name+"] ", flags)
	}
	return l
}

// NewWithConfig builds a Logger writing to stdout and, when cfg.File is set,
// to a lumberjack-rotated file.
func NewWithConfig(cfg Config) (*Logger, error) {
	if cfg.File == "" {
		return New(os.Stdout, ParseLevel(cfg.Level)), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSize, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 3),
		MaxAge:     orDefault(cfg.MaxAge, 28),
		Compress:   cfg.Compress,
	}
	l := New(io.MultiWriter(os.Stdout, file), ParseLevel(cfg.Level))
	l.closer = file
	return l, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) output(level Level, msg string) {
	if level < l.Level() {
		return
	}
	l.loggers[level].Output(3, msg)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.output(DEBUG, fmt.Sprintf(format, v...)) }
func (l *Logger) Infof(format string, v ...interface{})  { l.output(INFO, fmt.Sprintf(format, v...)) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.output(WARN, fmt.Sprintf(format, v...)) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.output(ERROR, fmt.Sprintf(format, v...)) }

var (
	globalMu sync.RWMutex
	global   = New(os.Stdout, INFO)
)

// SetDefault replaces the logger behind the package-level functions.
func SetDefault(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Default returns the logger behind the package-level functions.
func Default() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func Debugf(format string, v ...interface{}) { Default().output(DEBUG, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { Default().output(INFO, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { Default().output(WARN, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { Default().output(ERROR, fmt.Sprintf(format, v...)) }
