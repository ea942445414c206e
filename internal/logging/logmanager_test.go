//
//  Copyright © PageSentry Labs. All rights reserved.
//

package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestGetLogger(t *testing.T) {
	// Reset manager for clean test
	resetForTesting()

	// Get logger - should create with default level
	l := GetLogger("testmodule")
	assert.NotNil(t, l)
	assert.Equal(t, l.IsLevelEnabled(zapcore.InfoLevel), true)
	assert.Equal(t, l.IsLevelEnabled(zapcore.DebugLevel), false)

	// Same module yields the same instance
	assert.Same(t, l, GetLogger("testmodule"))
}

func TestUpdateConfigFromString(t *testing.T) {
	// Reset manager for clean test
	resetForTesting()

	// Set up initial config
	err := UpdateLogLevels(".:info;module1:debug;module2:warn")
	assert.NoError(t, err)

	// Test module1 should be debug
	l1 := GetLogger("module1")
	assert.Equal(t, l1.IsLevelEnabled(zapcore.DebugLevel), true)

	// Test module2 should be warn
	l2 := GetLogger("module2")
	assert.Equal(t, l2.IsLevelEnabled(zapcore.WarnLevel), true)
	assert.Equal(t, l2.IsLevelEnabled(zapcore.InfoLevel), false)

	// Test undeclared module should get default (info)
	l3 := GetLogger("undeclaredModule")
	assert.Equal(t, l3.IsLevelEnabled(zapcore.InfoLevel), true)
	assert.Equal(t, l3.IsLevelEnabled(zapcore.DebugLevel), false)

	// Update default level to debug
	err = UpdateLogLevels(".:debug")
	assert.NoError(t, err)

	// New undeclared module should get debug
	l4 := GetLogger("undeclaredModule2")
	assert.Equal(t, l4.IsLevelEnabled(zapcore.DebugLevel), true)

	// Existing undeclared module should also be updated to debug
	assert.Equal(t, l3.IsLevelEnabled(zapcore.DebugLevel), true)
}

func TestUpdateConfigFromStringWithWhitespace(t *testing.T) {
	// Reset manager for clean test
	resetForTesting()

	// Test with whitespace
	err := UpdateLogLevels("  mod1: debug  ;  mod2: error  ;  .: info  ")
	assert.NoError(t, err)

	l1 := GetLogger("mod1")
	assert.Equal(t, l1.IsLevelEnabled(zapcore.DebugLevel), true)

	l2 := GetLogger("mod2")
	assert.Equal(t, l2.IsLevelEnabled(zapcore.ErrorLevel), true)
	assert.Equal(t, l2.IsLevelEnabled(zapcore.WarnLevel), false)
}

// TestRaceCondition makes sure that the manager supports multi-threaded
// callers; that is, we don't have a race condition in GetLogger.
func TestRaceCondition(t *testing.T) {
	// Reset manager for clean test
	resetForTesting()

	done := make(chan bool, 15)
	for i := 0; i < 15; i++ {
		go func(k int) {
			module := fmt.Sprintf("module%d", k)
			l := GetLogger(module)
			l.SysDebugf("this is a test")
			done <- true
		}(i % 5)
	}

	// Wait for all goroutines to complete
	for i := 0; i < 15; i++ {
		<-done
	}
}
