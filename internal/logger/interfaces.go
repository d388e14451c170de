package logger

import (
	"github.com/statementexec/gostatement/loginterface"
)

// Re-export types from loginterface package to avoid circular dependencies
// while maintaining a clean internal API
type (
	LogEntry             = loginterface.LogEntry
	Logger               = loginterface.Logger
	ClientLogContextHook = loginterface.ClientLogContextHook
)

// Unwrapper is implemented by the wrapper loggers of this package.
type Unwrapper interface {
	Unwrap() interface{}
}
