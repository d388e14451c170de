package logger

import (
	"context"
	"fmt"
	"sync"
)

var (
	contextConfigMu       sync.RWMutex
	logKeys               []interface{}
	clientLogContextHooks map[string]ClientLogContextHook
)

// SetLogKeys sets the context keys whose values are attached to every entry
// created through WithContext.
func SetLogKeys(keys ...interface{}) {
	contextConfigMu.Lock()
	defer contextConfigMu.Unlock()
	logKeys = append([]interface{}(nil), keys...)
}

// GetLogKeys returns a copy of the current log keys
func GetLogKeys() []interface{} {
	contextConfigMu.RLock()
	defer contextConfigMu.RUnlock()
	return append([]interface{}(nil), logKeys...)
}

// RegisterLogContextHook registers a hook for extracting a context field.
func RegisterLogContextHook(key string, hook ClientLogContextHook) {
	contextConfigMu.Lock()
	defer contextConfigMu.Unlock()
	if clientLogContextHooks == nil {
		clientLogContextHooks = make(map[string]ClientLogContextHook)
	}
	clientLogContextHooks[key] = hook
}

func extractContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	contextConfigMu.RLock()
	defer contextConfigMu.RUnlock()

	fields := make(map[string]any)
	for _, key := range logKeys {
		if val := ctx.Value(key); val != nil {
			fields[fmt.Sprint(key)] = MaskSecrets(fmt.Sprint(val))
		}
	}
	for key, hook := range clientLogContextHooks {
		if val := hook(ctx); val != "" {
			fields[key] = MaskSecrets(val)
		}
	}
	return fields
}
