package logger

import (
	"errors"
	"log"
	"sync"
)

var (
	loggerAccessorMu sync.Mutex
	globalLogger     Logger
)

// GetLogger returns the global logger for use by internal packages
func GetLogger() Logger {
	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()
	return globalLogger
}

// SetLogger installs a base logger. The logger is always wrapped so that the
// global chain is levelFiltering -> secretMasking -> provided. Loggers that
// are already wrapped by this package are unwrapped first.
func SetLogger(provided Logger) error {
	if provided == nil {
		return errors.New("logger cannot be nil")
	}
	if _, isProxy := provided.(*Proxy); isProxy {
		return errors.New("cannot set Proxy as base logger, it would recurse into itself")
	}
	base := provided
	if filtered, ok := base.(*levelFilteringLogger); ok {
		base = filtered.inner
	}
	if masked, ok := base.(*secretMaskingLogger); ok {
		base = masked.inner
	}

	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()
	globalLogger = newLevelFilteringLogger(newSecretMaskingLogger(base))
	return nil
}

// CreateDefaultLogger creates a logrus-backed logger with the standard
// wrappers applied.
func CreateDefaultLogger() Logger {
	return newLevelFilteringLogger(newSecretMaskingLogger(newRawLogger()))
}

func init() {
	if err := SetLogger(newRawLogger()); err != nil {
		log.Panicf("cannot set default logger. %v", err)
	}
}
