package logger

import (
	"context"
	"io"
)

// levelFilteringLogger drops messages below the configured level before
// the masking layer has to format them.
type levelFilteringLogger struct {
	inner Logger
}

var _ Logger = (*levelFilteringLogger)(nil)

func newLevelFilteringLogger(inner Logger) Logger {
	if inner == nil {
		panic("inner logger cannot be nil")
	}
	return &levelFilteringLogger{inner: inner}
}

// Unwrap returns the inner logger.
func (l *levelFilteringLogger) Unwrap() interface{} {
	return l.inner
}

func (l *levelFilteringLogger) enabled(level int) bool {
	return level >= levelValue(l.inner.GetLogLevel())
}

func (l *levelFilteringLogger) Tracef(format string, args ...interface{}) {
	if l.enabled(levelTraceValue) {
		l.inner.Tracef(format, args...)
	}
}

func (l *levelFilteringLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(levelDebugValue) {
		l.inner.Debugf(format, args...)
	}
}

func (l *levelFilteringLogger) Infof(format string, args ...interface{}) {
	if l.enabled(levelInfoValue) {
		l.inner.Infof(format, args...)
	}
}

func (l *levelFilteringLogger) Warnf(format string, args ...interface{}) {
	if l.enabled(levelWarnValue) {
		l.inner.Warnf(format, args...)
	}
}

func (l *levelFilteringLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(levelErrorValue) {
		l.inner.Errorf(format, args...)
	}
}

func (l *levelFilteringLogger) Fatalf(format string, args ...interface{}) {
	if l.enabled(levelFatalValue) {
		l.inner.Fatalf(format, args...)
	}
}

func (l *levelFilteringLogger) Trace(msg string) {
	if l.enabled(levelTraceValue) {
		l.inner.Trace(msg)
	}
}

func (l *levelFilteringLogger) Debug(msg string) {
	if l.enabled(levelDebugValue) {
		l.inner.Debug(msg)
	}
}

func (l *levelFilteringLogger) Info(msg string) {
	if l.enabled(levelInfoValue) {
		l.inner.Info(msg)
	}
}

func (l *levelFilteringLogger) Warn(msg string) {
	if l.enabled(levelWarnValue) {
		l.inner.Warn(msg)
	}
}

func (l *levelFilteringLogger) Error(msg string) {
	if l.enabled(levelErrorValue) {
		l.inner.Error(msg)
	}
}

func (l *levelFilteringLogger) Fatal(msg string) {
	if l.enabled(levelFatalValue) {
		l.inner.Fatal(msg)
	}
}

func (l *levelFilteringLogger) WithField(key string, value interface{}) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithField(key, value)}
}

func (l *levelFilteringLogger) WithFields(fields map[string]any) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithFields(fields)}
}

func (l *levelFilteringLogger) WithContext(ctx context.Context) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithContext(ctx)}
}

func (l *levelFilteringLogger) SetLogLevel(level string) error {
	return l.inner.SetLogLevel(level)
}

func (l *levelFilteringLogger) GetLogLevel() string {
	return l.inner.GetLogLevel()
}

func (l *levelFilteringLogger) SetOutput(output io.Writer) {
	l.inner.SetOutput(output)
}

// levelFilteringEntry consults the parent's level on every call so that
// entries created before a level change follow the new level.
type levelFilteringEntry struct {
	parent *levelFilteringLogger
	inner  LogEntry
}

func (e *levelFilteringEntry) Tracef(format string, args ...interface{}) {
	if e.parent.enabled(levelTraceValue) {
		e.inner.Tracef(format, args...)
	}
}

func (e *levelFilteringEntry) Debugf(format string, args ...interface{}) {
	if e.parent.enabled(levelDebugValue) {
		e.inner.Debugf(format, args...)
	}
}

func (e *levelFilteringEntry) Infof(format string, args ...interface{}) {
	if e.parent.enabled(levelInfoValue) {
		e.inner.Infof(format, args...)
	}
}

func (e *levelFilteringEntry) Warnf(format string, args ...interface{}) {
	if e.parent.enabled(levelWarnValue) {
		e.inner.Warnf(format, args...)
	}
}

func (e *levelFilteringEntry) Errorf(format string, args ...interface{}) {
	if e.parent.enabled(levelErrorValue) {
		e.inner.Errorf(format, args...)
	}
}

func (e *levelFilteringEntry) Fatalf(format string, args ...interface{}) {
	if e.parent.enabled(levelFatalValue) {
		e.inner.Fatalf(format, args...)
	}
}

func (e *levelFilteringEntry) Trace(msg string) {
	if e.parent.enabled(levelTraceValue) {
		e.inner.Trace(msg)
	}
}

func (e *levelFilteringEntry) Debug(msg string) {
	if e.parent.enabled(levelDebugValue) {
		e.inner.Debug(msg)
	}
}

func (e *levelFilteringEntry) Info(msg string) {
	if e.parent.enabled(levelInfoValue) {
		e.inner.Info(msg)
	}
}

func (e *levelFilteringEntry) Warn(msg string) {
	if e.parent.enabled(levelWarnValue) {
		e.inner.Warn(msg)
	}
}

func (e *levelFilteringEntry) Error(msg string) {
	if e.parent.enabled(levelErrorValue) {
		e.inner.Error(msg)
	}
}

func (e *levelFilteringEntry) Fatal(msg string) {
	if e.parent.enabled(levelFatalValue) {
		e.inner.Fatal(msg)
	}
}
