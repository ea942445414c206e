//
//  Copyright © PageSentry Labs. All rights reserved.
//

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLogging(t *testing.T) {
	logger := newLogger("testmodule")
	var buffer bytes.Buffer
	logger.SetOut(&buffer)
	logger.SetLevel(zapcore.InfoLevel)

	// As default, the logging level must be at info
	assert.Equal(t, logger.IsLevelEnabled(zapcore.InfoLevel), true)
	// Debug should be off
	assert.Equal(t, logger.IsLevelEnabled(zapcore.DebugLevel), false)
	assert.False(t, logger.IsDebugEnabled())

	actorID := "tester"
	actionID := "123abc"

	// Debug log should not be printed
	logger.Debug(actorID, actionID, "debug message")
	logger.Debugf(actorID, actionID, "debug message %s", "hello")
	assert.Empty(t, buffer.Bytes())

	// The other logs should be printed
	buffer.Reset()
	logger.Info(actorID, actionID, "info message")
	assert.NotEmpty(t, buffer.Bytes())
	buffer.Reset()
	logger.Infof(actorID, actionID, "info message %s", "hello")
	assert.NotEmpty(t, buffer.Bytes())
	buffer.Reset()
	logger.Warn(actorID, actionID, "warning message")
	assert.NotEmpty(t, buffer.Bytes())
	buffer.Reset()
	logger.Warnf(actorID, actionID, "warning message %s", "hello")
	assert.NotEmpty(t, buffer.Bytes())
	buffer.Reset()
	logger.Error(actorID, actionID, "error message")
	assert.NotEmpty(t, buffer.Bytes())
	buffer.Reset()
	logger.Errorf(actorID, actionID, "error message %s", "hello")
	assert.NotEmpty(t, buffer.Bytes())
	// Note: Fatalf calls os.Exit() which would terminate the test, so we skip it
}

func TestLoggingFields(t *testing.T) {
	logger := newLogger("fieldmodule")
	var buffer bytes.Buffer
	logger.SetOut(&buffer)
	logger.SetLevel(zapcore.InfoLevel)

	logger.Infof("alice", "authorize", "checking %s", "/docs")

	out := buffer.String()
	assert.Contains(t, out, `"actor":"alice"`)
	assert.Contains(t, out, `"action":"authorize"`)
	assert.Contains(t, out, `"module":"fieldmodule"`)
}

func TestSysLogging(t *testing.T) {
	logger := newLogger("testsysmodule")
	var buffer bytes.Buffer
	logger.SetOut(&buffer)

	// Change logging level to error and test
	logger.SetLevel(zapcore.ErrorLevel)
	assert.Equal(t, logger.IsLevelEnabled(zapcore.ErrorLevel), true)

	// debug, info, and warning levels should be off
	assert.Equal(t, logger.IsLevelEnabled(zapcore.DebugLevel), false)
	assert.Equal(t, logger.IsLevelEnabled(zapcore.InfoLevel), false)
	assert.Equal(t, logger.IsLevelEnabled(zapcore.WarnLevel), false)

	logger.SysDebugf("debug message %s", "hello")
	logger.SysInfof("info message %s", "hello")
	logger.SysWarnf("warning message %s", "hello")
	assert.Empty(t, buffer.Bytes())

	buffer.Reset()
	logger.SysErrorf("error message %s", "hello")
	assert.NotEmpty(t, buffer.Bytes())
}
