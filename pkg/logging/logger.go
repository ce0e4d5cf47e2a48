package logging

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns string representation of log level
func (l LogLevel) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a configuration string to a level. Unrecognized
// values fall back to InfoLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context carrying the request ID attached to
// every entry logged with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Fields represents structured log fields
type Fields map[string]interface{}

// sink serializes writes from a logger and all loggers derived from it.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(line)
}

// StructuredLogger writes one JSON object per line
type StructuredLogger struct {
	level    LogLevel
	out      *sink
	base     Fields
	service  string
	version  string
	hostname string
	exit     func(int)
}

// LogEntry represents a single structured log entry
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Hostname  string    `json:"hostname"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Caller    string    `json:"caller,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewStructuredLogger creates a new structured logger writing to stdout
func NewStructuredLogger(service, version string, level LogLevel) *StructuredLogger {
	hostname, _ := os.Hostname()

	return &StructuredLogger{
		level:    level,
		out:      &sink{w: os.Stdout},
		service:  service,
		version:  version,
		hostname: hostname,
		exit:     os.Exit,
	}
}

// Discard returns a logger that drops every entry.
func Discard() *StructuredLogger {
	l := NewStructuredLogger("discard", "", FatalLevel+1)
	l.out.w = io.Discard
	return l
}

// SetOutput redirects the logger and every logger derived from it.
func (l *StructuredLogger) SetOutput(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.w = w
}

// With returns a child logger that adds fields to every entry. Fields
// passed at the call site win over inherited ones.
func (l *StructuredLogger) With(fields Fields) *StructuredLogger {
	child := *l
	child.base = merge(l.base, fields)
	return &child
}

// Debug logs a debug message with structured fields
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, DebugLevel, message, fields, nil)
}

// Info logs an info message with structured fields
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, InfoLevel, message, fields, nil)
}

// Warn logs a warning message with structured fields
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, WarnLevel, message, fields, nil)
}

// Error logs an error message with structured fields and error details
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message and exits the program
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, FatalLevel, message, fields, err)
	l.exit(1)
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, message string, fields Fields, err error) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Hostname:  l.hostname,
		Message:   message,
		Fields:    merge(l.base, fields),
		RequestID: RequestID(ctx),
	}

	if level >= ErrorLevel {
		// Skip log and the exported level method.
		if pc, _, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				entry.Caller = fn.Name() + ":" + strconv.Itoa(line)
			}
		}
		if err != nil {
			entry.Error = err.Error()
		}
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// Unencodable field values; keep the entry, drop the fields.
		entry.Fields = Fields{"fields_error": marshalErr.Error()}
		data, _ = json.Marshal(entry)
	}

	l.out.write(append(data, '\n'))
}

func merge(base, fields Fields) Fields {
	if len(base) == 0 {
		return fields
	}
	merged := make(Fields, len(base)+len(fields))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
