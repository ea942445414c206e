//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package test provides helpers for standing up fully wired engine
// instances in tests.
package test

import (
	"os"
	"path/filepath"
	"runtime"

	ialog "github.com/pagesentry/permengine/internal/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend/local"
	"github.com/pagesentry/permengine/pkg/engine/config"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

// repoRoot resolves the repository root relative to this source file so
// tests can run from any package directory.
func repoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..")
}

// SetupTestConfig points the configuration loader at the repository's
// testdata directory and reloads it.
func SetupTestConfig() {
	os.Setenv(config.ConfigPathEnv, filepath.Join(repoRoot(), "testdata"))
	config.ResetConfig()
}

// DatasetPath returns the path of the shared test dataset.
func DatasetPath() string {
	return filepath.Join(repoRoot(), "testdata", "dataset.yaml")
}

// NewTestEngine creates an engine backed by the shared test dataset,
// delivering audit records to the returned channel.  Extra options are
// applied after the defaults and may override them.
func NewTestEngine(opts ...options.EngineOption) (engine.Engine, chan *auditlog.Record, error) {
	SetupTestConfig()

	records := make(chan *auditlog.Record, 128)
	opts = append([]options.EngineOption{
		options.WithAuditLog(ialog.NewChannelFactory(records)),
		options.WithBackend(local.NewFactory(DatasetPath())),
	}, opts...)

	eng, err := engine.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return eng, records, nil
}
