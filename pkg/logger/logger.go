// Package logger provides the structured logger used across the anomaly
// detection service. Output is JSON by default so log aggregators can index
// the algorithm, alert level and latency fields emitted by the engine.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DebugLevel logs debug messages
	DebugLevel Level = iota
	// InfoLevel logs info messages
	InfoLevel
	// WarnLevel logs warning messages
	WarnLevel
	// ErrorLevel logs error messages
	ErrorLevel
	// FatalLevel logs fatal messages and exits
	FatalLevel
)

// String returns string representation of log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level from string
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Format represents the output format
type Format int

const (
	// TextFormat outputs logs in human-readable text format
	TextFormat Format = iota
	// JSONFormat outputs logs in JSON format
	JSONFormat
)

// ParseFormat parses an output format from string
func ParseFormat(format string) Format {
	if strings.EqualFold(format, "text") {
		return TextFormat
	}
	return JSONFormat
}

// Logger represents a structured logger
type Logger struct {
	level   Level
	format  Format
	output  io.Writer
	fields  map[string]interface{}
	service string
	version string
}

// Config represents logger configuration
type Config struct {
	Level   Level                  `yaml:"level" json:"level"`
	Format  Format                 `yaml:"format" json:"format"`
	Output  io.Writer              `yaml:"-" json:"-"`
	Service string                 `yaml:"service" json:"service"`
	Version string                 `yaml:"version" json:"version"`
	Fields  map[string]interface{} `yaml:"fields" json:"fields"`
}

// Entry represents a single log entry
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Service   string                 `json:"service,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new structured logger
func New(config *Config) *Logger {
	if config == nil {
		config = &Config{
			Level:  InfoLevel,
			Format: JSONFormat,
			Output: os.Stdout,
		}
	}

	if config.Output == nil {
		config.Output = os.Stdout
	}

	if config.Fields == nil {
		config.Fields = make(map[string]interface{})
	}

	return &Logger{
		level:   config.Level,
		format:  config.Format,
		output:  config.Output,
		fields:  config.Fields,
		service: config.Service,
		version: config.Version,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault(service, version string) *Logger {
	return New(&Config{
		Level:   InfoLevel,
		Format:  JSONFormat,
		Output:  os.Stdout,
		Service: service,
		Version: version,
	})
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return New(&Config{Level: FatalLevel, Output: io.Discard})
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{
		level:   l.level,
		format:  l.format,
		output:  l.output,
		fields:  fields,
		service: l.service,
		version: l.version,
	}
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &Logger{
		level:   l.level,
		format:  l.format,
		output:  l.output,
		fields:  merged,
		service: l.service,
		version: l.version,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

// Info logs an info message
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, args ...interface{}) {
	l.log(FatalLevel, message, args...)
	os.Exit(1)
}

func (l *Logger) log(level Level, message string, args ...interface{}) {
	if level < l.level {
		return
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	entry := &Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
		Service:   l.service,
		Version:   l.version,
	}
	if len(l.fields) > 0 {
		entry.Fields = l.fields
	}

	l.write(entry)
}

func (l *Logger) write(entry *Entry) {
	var output string

	switch l.format {
	case TextFormat:
		output = l.formatText(entry)
	default:
		data, err := json.Marshal(entry)
		if err != nil {
			output = fmt.Sprintf("%s [%s] %s\n", entry.Timestamp, entry.Level, entry.Message)
		} else {
			output = string(data) + "\n"
		}
	}

	l.output.Write([]byte(output))
}

func (l *Logger) formatText(entry *Entry) string {
	parts := []string{
		entry.Timestamp,
		fmt.Sprintf("[%s]", entry.Level),
	}

	if entry.Service != "" {
		parts = append(parts, fmt.Sprintf("service=%s", entry.Service))
	}

	parts = append(parts, entry.Message)

	for k, v := range entry.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	return strings.Join(parts, " ") + "\n"
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	return l.level
}

// IsLevelEnabled returns true if the given level is enabled
func (l *Logger) IsLevelEnabled(level Level) bool {
	return level >= l.level
}
