// Package logging provides the structured logger used across the platform.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents different logging levels
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of Level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Entry is a single structured log record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	JobID     string         `json:"job_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger provides structured logging for the pipeline components.
type Logger struct {
	level     Level
	format    string // "json" or "text"
	output    io.Writer
	component string
	base      []Field
	mu        sync.Mutex
}

// New creates a logger writing text entries to stdout at INFO level.
func New() *Logger {
	return &Logger{
		level:  INFO,
		format: "text",
		output: os.Stdout,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat sets the logging format ("json" or "text")
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = strings.ToLower(format)
}

// SetOutput sets the logging output destination
func (l *Logger) SetOutput(output io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = output
}

// Component returns a child logger scoped to one component. The child
// shares the parent's level, format, and writer.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		level:     l.level,
		format:    l.format,
		output:    l.output,
		component: name,
		base:      l.base,
	}
}

// With returns a child logger that attaches the given fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	child := l.Component(l.component)
	child.base = append(append([]Field{}, l.base...), fields...)
	return child
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, fields ...Field) {
	if err != nil {
		fields = append(fields, Err(err))
	}
	l.log(ERROR, msg, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	entry := &Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		Component: l.component,
		Fields:    make(map[string]any),
	}
	for _, f := range l.base {
		f.apply(entry)
	}
	for _, f := range fields {
		f.apply(entry)
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	var line string
	if l.format == "json" {
		if b, err := json.Marshal(entry); err == nil {
			line = string(b)
		} else {
			line = fmt.Sprintf("failed to marshal log entry: %v", err)
		}
	} else {
		line = formatText(entry)
	}
	fmt.Fprintln(l.output, line)
}

func formatText(entry *Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", entry.Timestamp, entry.Level, entry.Message)
	if entry.Component != "" {
		fmt.Fprintf(&b, " component=%s", entry.Component)
	}
	if entry.JobID != "" {
		fmt.Fprintf(&b, " job_id=%s", entry.JobID)
	}
	if entry.RunID != "" {
		fmt.Fprintf(&b, " run_id=%s", entry.RunID)
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " error=%s", entry.Error)
	}
	for key, value := range entry.Fields {
		fmt.Fprintf(&b, " %s=%v", key, value)
	}
	return b.String()
}

// Field represents a log field
type Field interface {
	apply(entry *Entry)
}

type kvField struct {
	key   string
	value any
}

func (f kvField) apply(entry *Entry) { entry.Fields[f.key] = f.value }

type errField struct{ err error }

func (f errField) apply(entry *Entry) { entry.Error = f.err.Error() }

type jobIDField struct{ id string }

func (f jobIDField) apply(entry *Entry) { entry.JobID = f.id }

type runIDField struct{ id string }

func (f runIDField) apply(entry *Entry) { entry.RunID = f.id }

// String creates a string field
func String(key, value string) Field { return kvField{key, value} }

// Int creates an integer field
func Int(key string, value int) Field { return kvField{key, value} }

// Float creates a float field
func Float(key string, value float64) Field { return kvField{key, value} }

// Err creates an error field
func Err(err error) Field { return errField{err} }

// JobID tags an entry with the owning job.
func JobID(id string) Field { return jobIDField{id} }

// RunID tags an entry with the pipeline run.
func RunID(id string) Field { return runIDField{id} }

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// Global returns the process-wide logger instance.
func Global() *Logger {
	loggerOnce.Do(func() {
		globalLogger = New()
	})
	return globalLogger
}
