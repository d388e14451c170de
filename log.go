package gostatement

import (
	loggerinternal "github.com/statementexec/gostatement/internal/logger"
	"github.com/statementexec/gostatement/loginterface"
)

// StatementIDKey is the context key carrying the statement id of the
// operation being logged.
const StatementIDKey contextKey = "LOG_STATEMENT_ID"

// RequestIDKey is the context key carrying the X-Request-Id of the current
// request.
const RequestIDKey contextKey = "LOG_REQUEST_ID"

func init() {
	SetLogKeys(StatementIDKey, RequestIDKey)
	_ = logger.SetLogLevel("error")
}

type (
	// ClientLogContextHook is a client-defined hook that can be used to insert log
	// fields based on the Context.
	ClientLogContextHook = loginterface.ClientLogContextHook

	// LogEntry allows for logging using a snapshot of field values.
	LogEntry = loginterface.LogEntry

	// Logger is the logging interface used across the library.
	Logger = loginterface.Logger
)

// SetLogKeys sets the context keys to be written to logs when logger.WithContext is used.
func SetLogKeys(keys ...contextKey) {
	ikeys := make([]interface{}, len(keys))
	for i, k := range keys {
		ikeys[i] = k
	}
	loggerinternal.SetLogKeys(ikeys...)
}

// RegisterLogContextHook registers a hook that can be used to extract fields
// from the Context and associated with log messages using the provided key.
func RegisterLogContextHook(contextKey string, ctxExtractor ClientLogContextHook) {
	loggerinternal.RegisterLogContextHook(contextKey, ctxExtractor)
}

// logger delegates to the internal global logger.
var logger Logger = loggerinternal.NewLoggerProxy()

// SetLogger installs a new base logger. It is wrapped with secret masking
// and level filtering.
func SetLogger(inLogger Logger) error {
	return loggerinternal.SetLogger(inLogger)
}

// GetLogger returns the library logger.
func GetLogger() Logger {
	return logger
}

// CreateDefaultLogger returns a new logrus-backed logger without touching the
// global one.
func CreateDefaultLogger() Logger {
	return loggerinternal.CreateDefaultLogger()
}
