package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// rawLogger implements Logger on top of logrus
type rawLogger struct {
	inner *logrus.Logger
	level string
	mu    sync.Mutex
}

// Compile-time verification that rawLogger implements Logger
var _ Logger = (*rawLogger)(nil)

// newRawLogger creates the internal default logger
func newRawLogger() Logger {
	inner := logrus.New()
	inner.SetOutput(os.Stderr)
	inner.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339Nano,
		FullTimestamp:   true,
	})
	log := &rawLogger{inner: inner}
	_ = log.SetLogLevel("info")
	return log
}

// SetLogLevel sets the log level
func (log *rawLogger) SetLogLevel(level string) error {
	canonical, err := parseLevel(level)
	if err != nil {
		return fmt.Errorf("error while setting log level. %v", err)
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.level = canonical
	log.inner.SetLevel(toLogrusLevel(canonical))
	return nil
}

// GetLogLevel returns the current log level
func (log *rawLogger) GetLogLevel() string {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.level
}

// SetOutput sets the output writer
func (log *rawLogger) SetOutput(output io.Writer) {
	log.inner.SetOutput(output)
}

func (log *rawLogger) WithField(key string, value interface{}) LogEntry {
	return &rawEntry{inner: log.inner.WithField(key, value)}
}

func (log *rawLogger) WithFields(fields map[string]any) LogEntry {
	return &rawEntry{inner: log.inner.WithFields(fields)}
}

func (log *rawLogger) WithContext(ctx context.Context) LogEntry {
	entry := log.inner.WithContext(ctx)
	if fields := extractContextFields(ctx); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return &rawEntry{inner: entry}
}

func (log *rawLogger) Tracef(format string, args ...interface{}) { log.inner.Tracef(format, args...) }
func (log *rawLogger) Debugf(format string, args ...interface{}) { log.inner.Debugf(format, args...) }
func (log *rawLogger) Infof(format string, args ...interface{})  { log.inner.Infof(format, args...) }
func (log *rawLogger) Warnf(format string, args ...interface{})  { log.inner.Warnf(format, args...) }
func (log *rawLogger) Errorf(format string, args ...interface{}) { log.inner.Errorf(format, args...) }
func (log *rawLogger) Fatalf(format string, args ...interface{}) { log.inner.Fatalf(format, args...) }

func (log *rawLogger) Trace(msg string) { log.inner.Trace(msg) }
func (log *rawLogger) Debug(msg string) { log.inner.Debug(msg) }
func (log *rawLogger) Info(msg string)  { log.inner.Info(msg) }
func (log *rawLogger) Warn(msg string)  { log.inner.Warn(msg) }
func (log *rawLogger) Error(msg string) { log.inner.Error(msg) }
func (log *rawLogger) Fatal(msg string) { log.inner.Fatal(msg) }

// rawEntry is a LogEntry carrying a snapshot of fields
type rawEntry struct {
	inner *logrus.Entry
}

func (e *rawEntry) Tracef(format string, args ...interface{}) { e.inner.Tracef(format, args...) }
func (e *rawEntry) Debugf(format string, args ...interface{}) { e.inner.Debugf(format, args...) }
func (e *rawEntry) Infof(format string, args ...interface{})  { e.inner.Infof(format, args...) }
func (e *rawEntry) Warnf(format string, args ...interface{})  { e.inner.Warnf(format, args...) }
func (e *rawEntry) Errorf(format string, args ...interface{}) { e.inner.Errorf(format, args...) }
func (e *rawEntry) Fatalf(format string, args ...interface{}) { e.inner.Fatalf(format, args...) }

func (e *rawEntry) Trace(msg string) { e.inner.Trace(msg) }
func (e *rawEntry) Debug(msg string) { e.inner.Debug(msg) }
func (e *rawEntry) Info(msg string)  { e.inner.Info(msg) }
func (e *rawEntry) Warn(msg string)  { e.inner.Warn(msg) }
func (e *rawEntry) Error(msg string) { e.inner.Error(msg) }
func (e *rawEntry) Fatal(msg string) { e.inner.Fatal(msg) }
