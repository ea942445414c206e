//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package config provides configuration management for the permission
// engine using [Viper] for flexible configuration sources.
//
// Configuration can be provided via:
//   - YAML configuration files
//   - Environment variables with the PSE_ prefix
//   - Programmatic defaults
//
// # Configuration File
//
// By default, the engine looks for pse-config.yaml in the current
// directory.  Override the location using environment variables:
//
//	PSE_CONFIG_PATH=/etc/permengine
//	PSE_CONFIG_FILENAME=production-config
//
// Example configuration file:
//
//	log:
//	  level: ".:info"
//	mock:
//	  enabled: false
//	cache:
//	  enabled: true
//	  ttl: 300
//	audit:
//	  buffer: 1024
//	  env:
//	    pod: HOSTNAME
//	    region: AWS_REGION
//
// # Environment Variables
//
// All configuration keys can be set via environment variables with the
// PSE_ prefix.  Dots in key names become underscores:
//
//	PSE_LOG_LEVEL=.:debug
//	PSE_CACHE_TTL=60
//	PSE_MOCK_ENABLED=true
//
// [Viper]: https://github.com/spf13/viper
package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pagesentry/permengine/internal/logging"
	"github.com/spf13/viper"
)

// Environment variable and default path constants for configuration loading.
const (
	// EnvVarPrefix is the prefix for all permission engine environment
	// variables.  For example, the key "log.level" becomes PSE_LOG_LEVEL.
	EnvVarPrefix string = "PSE"

	// ConfigPathEnv is the environment variable that specifies the
	// directory containing the configuration file.
	ConfigPathEnv string = "PSE_CONFIG_PATH"

	// ConfigFileNameEnv is the environment variable that specifies the
	// configuration file name (without extension).
	ConfigFileNameEnv string = "PSE_CONFIG_FILENAME"

	// ConfigDefaultPath is the default directory to search for config files.
	ConfigDefaultPath string = "."

	// ConfigDefaultFilename is the default configuration file name (without extension).
	ConfigDefaultFilename string = "pse-config"
)

// Configuration key constants for use with [VConfig].
const (
	logLevel string = "log.level"

	// MockEnabled when set to true causes the engine to use a mock
	// backend regardless of any backend configured via options.
	// This is useful for unit testing applications that embed the engine.
	//
	// Set via environment: PSE_MOCK_ENABLED=true
	MockEnabled string = "mock.enabled"

	// CacheEnabled controls whether authorization decisions are memoized
	// in the decision cache.  Disabling the cache forces every authorize
	// call through full evaluation.
	//
	// Default: true
	CacheEnabled string = "cache.enabled"

	// CacheTTL is the decision cache time-to-live in seconds.  Entries
	// older than the TTL are recomputed on next access.
	//
	// Default: 300
	CacheTTL string = "cache.ttl"

	// AuditBuffer is the capacity of the asynchronous audit emitter's
	// buffer.  Records are dropped (and the drop logged) when the buffer
	// is full, so that audit delivery never delays a decision.
	//
	// Default: 1024
	AuditBuffer string = "audit.buffer"

	// AuditEnv defines a mapping from audit record metadata keys to
	// environment variable names.  The values of the specified variables
	// are included in every audit record.
	//
	// Example config:
	//
	//	audit:
	//	  env:
	//	    pod: HOSTNAME
	//	    region: AWS_REGION
	AuditEnv string = "audit.env"
)

var (
	once     sync.Once
	loadOnce sync.Once
	loadErr  error

	// VConfig is the global Viper configuration instance for the
	// permission engine.
	//
	// VConfig is initialized automatically when [Load] or [Init] is
	// called.  In most cases applications don't need to access it
	// directly; configuration is handled by the engine constructor.
	VConfig *viper.Viper
	logger  = logging.GetLogger("permengine.config")
)

// Init initializes the configuration system without loading config files.
//
// Init sets up Viper with configuration file paths and names, environment
// variable handling (PSE_ prefix), and default values for all keys.  It is
// safe to call multiple times; subsequent calls are no-ops.
func Init() {
	once.Do(doInitialize)
}

func getConfigPath() string {
	if p, ok := os.LookupEnv(ConfigPathEnv); ok {
		return p
	}
	return ConfigDefaultPath
}

func getConfigFileName() string {
	if n, ok := os.LookupEnv(ConfigFileNameEnv); ok {
		return n
	}
	return ConfigDefaultFilename
}

func doInitialize() {
	VConfig = viper.New()

	// config-file loading: default is './pse-config.yaml' but can be
	// overridden with $(PSE_CONFIG_PATH)/$(PSE_CONFIG_FILENAME).yaml
	VConfig.AddConfigPath(getConfigPath())
	VConfig.SetConfigName(getConfigFileName())
	VConfig.SetConfigType("yaml")

	// envvar handling: keys such as 'log.level' become 'PSE_LOG_LEVEL'
	VConfig.SetEnvPrefix(EnvVarPrefix)
	VConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	VConfig.AutomaticEnv()

	VConfig.SetDefault(logLevel, ".:info")
	VConfig.SetDefault(CacheEnabled, true)
	VConfig.SetDefault(CacheTTL, 300)
	VConfig.SetDefault(AuditBuffer, 1024)
}

// Load initializes configuration and loads settings from files and
// environment.
//
// Load is safe to call concurrently; subsequent calls after the first
// successful load are no-ops that return nil.  A missing configuration
// file is not an error.
func Load() error {
	loadOnce.Do(func() {
		Init()

		// Early log level update from the environment allows debugging the
		// config loading itself.
		if early := os.Getenv("PSE_LOG_LEVEL"); early != "" {
			if err := logging.UpdateLogLevels(early); err != nil {
				logger.SysErrorf("Failed updating early log level %s: %+v", early, err)
				loadErr = err
				return
			}
		}

		logger.SysDebugf("Loading configuration from %s/%s.yaml", getConfigPath(), getConfigFileName())
		if err := VConfig.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				logger.SysWarnf("error reading config; using defaults: %+v", err)
			}
			logger.SysDebugf("No config file found at %s/%s.yaml", getConfigPath(), getConfigFileName())
		}

		loglevel := VConfig.GetString(logLevel)
		if err := logging.UpdateLogLevels(loglevel); err != nil {
			logger.SysErrorf("Failed updating log level %s: %+v", loglevel, err)
			loadErr = err
			return
		}
	})

	return loadErr
}

// ResetConfig clears all configuration and reinitializes with defaults.
//
// WARNING: This function is intended for testing only.  It resets the
// global configuration state, which can cause race conditions in
// concurrent code.
func ResetConfig() {
	VConfig = nil
	once = sync.Once{}
	loadOnce = sync.Once{}
	loadErr = nil
	Init()
	_ = Load()
}

// GetCacheTTL returns the configured decision cache TTL as a duration.
func GetCacheTTL() time.Duration {
	return time.Duration(VConfig.GetInt(CacheTTL)) * time.Second
}

// GetAuditEnv returns resolved audit environment metadata for audit
// records.
//
// It reads the audit.env configuration section and resolves each
// configured environment variable to its current value.  Variables that
// are not set have empty string values in the result.  Returns an empty
// map if no audit.env configuration is present.
func GetAuditEnv() map[string]string {
	result := make(map[string]string)

	envConfig := VConfig.GetStringMapString(AuditEnv)
	for key, envVarName := range envConfig {
		result[key] = os.Getenv(envVarName)
	}

	return result
}
