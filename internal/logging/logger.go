package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Placeholder replaces every occurrence of protected secret material in
// outgoing log fields.
const Placeholder = "[REDACTED]"

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel parses a minimum log level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Field is one structured key/value pair on a log record.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err is shorthand for an "error" field. The error text goes through
// redaction like any other string value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger writes one JSON object per line to a console sink and, optionally,
// a file sink. All loggers derived from the same root share one core: one
// mutex, one secret set, one monotonic timestamp floor. A Logger is safe for
// concurrent use and is passed explicitly, never held in a package global.
type Logger struct {
	name   string
	fields []Field
	core   *core
}

type core struct {
	mu      sync.Mutex
	level   Level
	console io.Writer
	file    *fileSink
	secrets []string
	last    time.Time

	now func() time.Time
}

// New creates the root logger for a run. Records at a level below min are
// dropped. The console writer is typically os.Stderr so structured export
// output on stdout stays clean.
func New(min Level, console io.Writer) *Logger {
	return &Logger{
		name: "azdoexport",
		core: &core{
			level:   min,
			console: console,
			now:     time.Now,
		},
	}
}

// Named returns a child logger whose records carry the dotted logger name.
func (l *Logger) Named(name string) *Logger {
	child := *l
	if l.name == "" {
		child.name = name
	} else {
		child.name = l.name + "." + name
	}
	return &child
}

// With returns a child logger with additional bound fields on every record.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.fields = append(append([]Field(nil), l.fields...), fields...)
	return &child
}

// Protect registers secret material for scrubbing. Every subsequent record
// has exact and substring occurrences of the secret replaced with
// Placeholder on all sinks. Empty strings are ignored.
func (l *Logger) Protect(secret string) {
	if secret == "" {
		return
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.secrets = append(l.core.secrets, secret)
}

// AttachFile opens a file sink in addition to the console sink. The sink is
// flushed and closed by Close.
func (l *Logger) AttachFile(path string) error {
	sink, err := newFileSink(path)
	if err != nil {
		return err
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.file = sink
	return nil
}

// Close flushes and closes the file sink, if any. The console sink is left
// open. Safe to call when no file sink is attached, and safe to defer on
// every exit path.
func (l *Logger) Close() error {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	if l.core.file == nil {
		return nil
	}
	err := l.core.file.Close()
	l.core.file = nil
	return err
}

// Enabled reports whether records at the given level would be emitted. Used
// to skip building expensive trace fields.
func (l *Logger) Enabled(level Level) bool {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return level >= l.core.level
}

func (l *Logger) Trace(event string, fields ...Field) {
	l.emit(LevelTrace, event, fields)
}

func (l *Logger) Debug(event string, fields ...Field) {
	l.emit(LevelDebug, event, fields)
}

func (l *Logger) Info(event string, fields ...Field) {
	l.emit(LevelInfo, event, fields)
}

func (l *Logger) Warning(event string, fields ...Field) {
	l.emit(LevelWarning, event, fields)
}

func (l *Logger) Error(event string, fields ...Field) {
	l.emit(LevelError, event, fields)
}

func (l *Logger) emit(level Level, event string, fields []Field) {
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < c.level {
		return
	}

	// Timestamps never decrease within a run, even if the wall clock does.
	ts := c.now().UTC()
	if ts.Before(c.last) {
		ts = c.last
	}
	c.last = ts

	entry := make(map[string]any, len(l.fields)+len(fields)+4)
	entry["timestamp"] = ts.Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["logger"] = l.name
	entry["event"] = c.scrub(event)
	for _, f := range l.fields {
		entry[f.Key] = c.scrubValue(f.Value)
	}
	for _, f := range fields {
		entry[f.Key] = c.scrubValue(f.Value)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	c.console.Write(data)
	if c.file != nil {
		c.file.Write(data)
	}
}

// scrubValue redacts string-typed values. Non-string values (counts,
// durations, booleans) cannot carry secret material and pass through.
func (c *core) scrubValue(v any) any {
	if s, ok := v.(string); ok {
		return c.scrub(s)
	}
	return v
}

func (c *core) scrub(s string) string {
	for _, secret := range c.secrets {
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return s
}
