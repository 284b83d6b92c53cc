package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	mu     *sync.Mutex
	writer io.Writer
	exit   func(int)
	fields []field

	Name  string
	Level LogLevel

	TimeFormat string
	File       string
	NoColor    bool
	JSON       bool
	NoTerminal bool
	Rotation   *LoggerRotation
}

type LoggerRotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type field struct {
	key   string
	value any
}

type logEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewLogger writes to stdout unless noTerminal is set, and to a rotated file when file is non-empty.
func NewLogger(name string, level LogLevel, file string, noTerminal bool) *Logger {
	l := newLogger(name, level)
	l.File = file
	l.NoTerminal = noTerminal
	l.setupWriter()

	return l
}

// NewWriterLogger writes uncoloured lines to w only.
func NewWriterLogger(name string, level LogLevel, w io.Writer) *Logger {
	l := newLogger(name, level)
	l.NoColor = true
	l.NoTerminal = true
	l.writer = w

	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger("", Fatal+1, io.Discard)
}

func newLogger(name string, level LogLevel) *Logger {
	return &Logger{
		mu:   &sync.Mutex{},
		exit: os.Exit,

		Name:       name,
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
		Rotation: &LoggerRotation{
			MaxSize:    128,
			MaxBackups: 5,
			MaxAge:     16,
		},
	}
}

func (l *Logger) setupWriter() {
	var writers []io.Writer

	if !l.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if l.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   l.File,
			MaxSize:    l.Rotation.MaxSize,
			MaxBackups: l.Rotation.MaxBackups,
			MaxAge:     l.Rotation.MaxAge,
			Compress:   l.Rotation.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l.writer = io.MultiWriter(writers...)
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if l == nil || level < l.Level {
		return
	}

	timestamp := time.Now().Format(l.TimeFormat)
	formatted := fmt.Sprintf(msg, args...)

	var line string
	if l.JSON {
		entry := logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Component: l.Name,
			Message:   formatted,
		}
		if len(l.fields) > 0 {
			entry.Fields = make(map[string]any, len(l.fields))
			for _, f := range l.fields {
				entry.Fields[f.key] = f.value
			}
		}

		raw, err := json.Marshal(entry)
		if err != nil {
			raw = fmt.Appendf(nil, `{"level":%q,"message":%q}`, level.String(), formatted)
		}
		line = string(raw) + "\n"
	} else {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %-5s", timestamp, level)
		if l.Name != "" {
			fmt.Fprintf(&sb, " [%s]", l.Name)
		}
		sb.WriteString(" ")
		sb.WriteString(formatted)
		for _, f := range l.sortedFields() {
			fmt.Fprintf(&sb, " %s=%v", f.key, f.value)
		}

		if !l.NoTerminal && !l.NoColor {
			line = Color(level) + sb.String() + colorReset + "\n"
		} else {
			line = sb.String() + "\n"
		}
	}

	l.mu.Lock()
	io.WriteString(l.writer, line)
	l.mu.Unlock()

	if level == Fatal {
		l.exit(1)
	}
}

func (l *Logger) sortedFields() []field {
	fields := make([]field, len(l.fields))
	copy(fields, l.fields)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].key < fields[j].key
	})
	return fields
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(Debug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(Info, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(Warn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(Error, msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.log(Fatal, msg, args...)
}

// Named returns a child logger called "parent/name" that shares the writer and fields.
func (l *Logger) Named(name string) *Logger {
	child := l.clone()
	if l.Name == "" {
		child.Name = name
	} else {
		child.Name = l.Name + "/" + name
	}
	return child
}

// With returns a child logger that appends key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	child := l.clone()
	child.fields = append(child.fields, field{key: key, value: value})
	return child
}

func (l *Logger) clone() *Logger {
	fields := make([]field, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)

	return &Logger{
		mu:     l.mu,
		writer: l.writer,
		exit:   l.exit,
		fields: fields,

		Name:       l.Name,
		Level:      l.Level,
		TimeFormat: l.TimeFormat,
		File:       l.File,
		NoColor:    l.NoColor,
		JSON:       l.JSON,
		NoTerminal: l.NoTerminal,
		Rotation:   l.Rotation,
	}
}
