//
//  Copyright © PageSentry Labs. All rights reserved.
//

package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// LogManager keeps track of all instantiated loggers so that levels can be
// adjusted per module at runtime.
type LogManager struct {
	loggers  map[string]*Logger
	defLevel zapcore.Level
}

// Manager's singleton variables
var (
	manager *LogManager
	mu      sync.RWMutex
	once    sync.Once
)

// resetForTesting resets the manager state - only for testing
func resetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	manager = nil
	once = sync.Once{}
}

func initManager() {
	manager = &LogManager{
		loggers:  make(map[string]*Logger),
		defLevel: zapcore.InfoLevel,
	}
}

// GetLogger returns a logger for the specified module, creating it with the
// manager's default level on first use.
func GetLogger(module string) *Logger {
	once.Do(initManager)

	mu.RLock()
	if l := manager.loggers[module]; l != nil {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l := manager.loggers[module]; l != nil {
		return l
	}

	l := newLogger(module)
	l.SetLevel(manager.defLevel)
	manager.loggers[module] = l

	return l
}

// parseLevel converts a string level to zapcore.Level.  Unrecognized levels
// fall back to info.
func parseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	case "error":
		return zapcore.ErrorLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "info":
		return zapcore.InfoLevel
	case "debug", "trace":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// UpdateLogLevels updates log levels from a string of the form:
// "mod1:debug;mod2:error;.:info"
// where "." sets the default for all modules without an explicit entry.
// Whitespace is permitted for readability.
func UpdateLogLevels(logstr string) error {
	once.Do(initManager)

	for _, s := range []string{" ", "\t", "\n"} {
		logstr = strings.ReplaceAll(logstr, s, "")
	}

	mu.Lock()
	defer mu.Unlock()

	explicit := make(map[string]bool)
	var defaultLevel zapcore.Level
	hasDefault := false

	for _, entry := range strings.Split(logstr, ";") {
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			continue
		}

		module, levelStr := parts[0], parts[1]
		level := parseLevel(levelStr)

		if module == "." {
			defaultLevel = level
			hasDefault = true
			continue
		}

		explicit[module] = true
		l := manager.loggers[module]
		if l == nil {
			l = newLogger(module)
			manager.loggers[module] = l
		}
		l.SetLevel(level)
	}

	if hasDefault {
		manager.defLevel = defaultLevel
		for mod, l := range manager.loggers {
			if !explicit[mod] {
				l.SetLevel(defaultLevel)
			}
		}
	}

	return nil
}
