package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonMarshal is a variable for dependency injection in tests.
var jsonMarshal = json.Marshal

// LogEntry represents a single JSON log entry.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LoggerConfig configures the JSONLogger.
type LoggerConfig struct {
	// OutputPath is the run log file. Empty means stdout.
	OutputPath string

	// StepLogPath receives one StepLog line per executed
	// step. Empty disables the step log.
	StepLogPath string

	Level   LogLevel
	Verbose bool
	Fields  map[string]any
}

// jsonSink is the writer state shared by a JSONLogger and every
// logger derived from it with WithFields.
type jsonSink struct {
	mu     sync.Mutex
	output io.Writer
	steps  io.Writer
	closed bool
}

// JSONLogger implements Logger with JSON Lines output.
type JSONLogger struct {
	sink    *jsonSink
	level   LogLevel
	verbose bool
	fields  map[string]any
}

// NewJSONLogger creates a new JSON logger. If OutputPath is
// empty, logs are written to stdout.
func NewJSONLogger(config LoggerConfig) (*JSONLogger, error) {
	logger := &JSONLogger{
		sink:    &jsonSink{output: os.Stdout},
		level:   config.Level,
		verbose: config.Verbose,
		fields:  make(map[string]any, len(config.Fields)),
	}
	for k, v := range config.Fields {
		logger.fields[k] = v
	}

	if config.OutputPath != "" {
		file, err := openAppend(config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to open log file: %w", err,
			)
		}
		logger.sink.output = file
	}

	if config.StepLogPath != "" {
		file, err := openAppend(config.StepLogPath)
		if err != nil {
			_ = logger.Close()
			return nil, fmt.Errorf(
				"failed to open step log: %w", err,
			)
		}
		logger.sink.steps = file
	}

	return logger, nil
}

// NewJSONLoggerTo creates a JSON logger writing log entries to
// w and step entries to steps (which may be nil).
func NewJSONLoggerTo(
	w, steps io.Writer, level LogLevel,
) *JSONLogger {
	return &JSONLogger{
		sink:    &jsonSink{output: w, steps: steps},
		level:   level,
		verbose: level == LevelDebug,
		fields:  make(map[string]any),
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644,
	)
}

func (l *JSONLogger) log(
	level LogLevel, msg string, fields ...Field,
) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]any, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	fmt.Fprintln(l.sink.output, string(data))
}

// Info logs an informational message.
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Debug logs a debug message only if verbose is enabled.
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	if l.verbose {
		l.log(LevelDebug, msg, fields...)
	}
}

// WithFields returns a new Logger with additional default
// fields. It writes to the same files.
func (l *JSONLogger) WithFields(fields ...Field) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &JSONLogger{
		sink:    l.sink,
		level:   l.level,
		verbose: l.verbose,
		fields:  merged,
	}
}

// LogStep writes the step to the dedicated step log.
func (l *JSONLogger) LogStep(step StepLog) {
	if l.sink.steps == nil {
		return
	}
	if step.Timestamp == "" {
		step.Timestamp = time.Now().Format(time.RFC3339Nano)
	}

	data, err := jsonMarshal(step)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	fmt.Fprintln(l.sink.steps, string(data))
}

// Close flushes and closes all underlying files. Loggers derived
// with WithFields stop writing as well.
func (l *JSONLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.closed {
		return nil
	}
	l.sink.closed = true

	var firstErr error
	for _, w := range []io.Writer{l.sink.output, l.sink.steps} {
		if w == nil || w == os.Stdout || w == os.Stderr {
			continue
		}
		if closer, ok := w.(io.Closer); ok {
			if err := closer.Close(); err != nil &&
				firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SetupLogging creates the JSON run log and step log for a run
// in the given logs directory. Verbose runs log at debug level.
func SetupLogging(
	logsDir string,
	level LogLevel,
	verbose bool,
) (*JSONLogger, error) {
	config := LoggerConfig{
		OutputPath:  filepath.Join(logsDir, "run.log"),
		StepLogPath: filepath.Join(logsDir, "steps.log"),
		Level:       level,
		Verbose:     verbose,
	}

	if verbose {
		config.Level = LevelDebug
	}

	return NewJSONLogger(config)
}
