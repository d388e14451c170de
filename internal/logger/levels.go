package logger

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level values for comparison. OFF is higher than any real level.
const (
	levelTraceValue = -8
	levelDebugValue = -4
	levelInfoValue  = 0
	levelWarnValue  = 4
	levelErrorValue = 8
	levelFatalValue = 12
	levelOffValue   = math.MaxInt
)

// levelValue returns the numeric value of a log level
func levelValue(level string) int {
	switch strings.ToUpper(level) {
	case "TRACE":
		return levelTraceValue
	case "DEBUG":
		return levelDebugValue
	case "INFO":
		return levelInfoValue
	case "WARN", "WARNING":
		return levelWarnValue
	case "ERROR":
		return levelErrorValue
	case "FATAL":
		return levelFatalValue
	case "OFF":
		return levelOffValue
	default:
		return levelInfoValue
	}
}

// parseLevel converts a level name to the canonical upper-case form.
func parseLevel(level string) (string, error) {
	switch upper := strings.ToUpper(level); upper {
	case "TRACE", "DEBUG", "INFO", "ERROR", "FATAL", "OFF":
		return upper, nil
	case "WARN", "WARNING":
		return "WARN", nil
	default:
		return "", fmt.Errorf("unknown log level: %s", level)
	}
}

// toLogrusLevel maps a canonical level name onto logrus. OFF maps to panic,
// which the driver never emits.
func toLogrusLevel(level string) logrus.Level {
	switch level {
	case "TRACE":
		return logrus.TraceLevel
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	case "FATAL":
		return logrus.FatalLevel
	default:
		return logrus.PanicLevel
	}
}
