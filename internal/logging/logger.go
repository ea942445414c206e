//
//  Copyright © PageSentry Labs. All rights reserved.
//

package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger that stamps every message with
// module, actor, and action fields for structured audit-friendly output.
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
	level  zapcore.Level
	writer io.Writer
}

const (
	actorField  = "actor"
	actionField = "action"
	moduleField = "module"

	defActor  = "sys"
	defAction = "unk"
)

// buildZap constructs the underlying zap logger for the given writer/level.
// The encoder honors LOG_FORMATTER ("text" for console output, JSON otherwise)
// and LOG_REPORT_CALLER to include caller information.
func buildZap(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch os.Getenv("LOG_FORMATTER") {
	case "text":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	options := []zap.Option{
		zap.AddCallerSkip(1), // skip this wrapper
	}
	if os.Getenv("LOG_REPORT_CALLER") != "" {
		options = append(options, zap.AddCaller())
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level), options...)
}

// internal constructor; applications should use GetLogger() so the manager
// can track levels.
func newLogger(module string) *Logger {
	l := &Logger{
		module: module,
		level:  zapcore.InfoLevel,
	}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	l.sugar = buildZap(l.Out(), l.level).Sugar()
}

// Out returns the current output writer.
func (l *Logger) Out() io.Writer {
	if l.writer != nil {
		return l.writer
	}
	return os.Stdout
}

// SetOut redirects log output.  Intended for tests.
func (l *Logger) SetOut(w io.Writer) {
	l.writer = w
	l.rebuild()
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level = level
	l.rebuild()
}

// IsDebugEnabled returns true if the current logging level is debug or higher.
// Use it as a guard where computing log arguments is expensive:
//
//	if logger.IsDebugEnabled() {
//	    logger.Debugf(actor, action, "state: %+v", expensiveDump())
//	}
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= zapcore.DebugLevel
}

// IsLevelEnabled checks if a level is enabled.
func (l *Logger) IsLevelEnabled(level zapcore.Level) bool {
	return l.level <= level
}

func (l *Logger) with(actorID, actionID string) *zap.SugaredLogger {
	return l.sugar.With(
		zap.String(actorField, actorID),
		zap.String(actionField, actionID),
		zap.String(moduleField, l.module),
	)
}

// Debug logs a debug message.
func (l *Logger) Debug(actorID, actionID string, args ...interface{}) {
	l.with(actorID, actionID).Debug(args...)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(actorID, actionID string, format string, args ...interface{}) {
	l.with(actorID, actionID).Debugf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(actorID, actionID string, args ...interface{}) {
	l.with(actorID, actionID).Info(args...)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(actorID, actionID string, format string, args ...interface{}) {
	l.with(actorID, actionID).Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(actorID, actionID string, args ...interface{}) {
	l.with(actorID, actionID).Warn(args...)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(actorID, actionID string, format string, args ...interface{}) {
	l.with(actorID, actionID).Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(actorID, actionID string, args ...interface{}) {
	l.with(actorID, actionID).Error(args...)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(actorID, actionID string, format string, args ...interface{}) {
	l.with(actorID, actionID).Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits.
func (l *Logger) Fatalf(actorID, actionID string, format string, args ...interface{}) {
	l.with(actorID, actionID).Fatalf(format, args...)
}

// Below are variants using the default actor and action.

// SysDebugf logs a formatted debug message with default actor and action.
func (l *Logger) SysDebugf(format string, args ...interface{}) {
	l.Debugf(defActor, defAction, format, args...)
}

// SysInfof logs a formatted info message with default actor and action.
func (l *Logger) SysInfof(format string, args ...interface{}) {
	l.Infof(defActor, defAction, format, args...)
}

// SysWarnf logs a formatted warning message with default actor and action.
func (l *Logger) SysWarnf(format string, args ...interface{}) {
	l.Warnf(defActor, defAction, format, args...)
}

// SysErrorf logs a formatted error message with default actor and action.
func (l *Logger) SysErrorf(format string, args ...interface{}) {
	l.Errorf(defActor, defAction, format, args...)
}
