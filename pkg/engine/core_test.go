//
//  Copyright © PageSentry Labs. All rights reserved.
//

package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginetest "github.com/pagesentry/permengine/internal/engine/test"
	"github.com/pagesentry/permengine/pkg/engine"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend/local"
	"github.com/pagesentry/permengine/pkg/engine/config"
	"github.com/pagesentry/permengine/pkg/engine/model"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

var ctx = context.Background()

func nextRecord(t *testing.T, records chan *auditlog.Record) *auditlog.Record {
	t.Helper()
	select {
	case r := <-records:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit record")
		return nil
	}
}

func TestAuthorizeEndToEnd(t *testing.T) {
	eng, records, err := enginetest.NewTestEngine()
	require.NoError(t, err)
	defer eng.Close()

	d := eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)
	assert.True(t, d.Allowed())

	r := nextRecord(t, records)
	assert.Equal(t, "alice", r.PrincipalID)
	assert.Equal(t, "allow", r.Effect)
}

func TestAdminWritesThroughBackend(t *testing.T) {
	eng, _, err := enginetest.NewTestEngine()
	require.NoError(t, err)
	defer eng.Close()

	store, ok := eng.Backend().(*local.Store)
	require.True(t, ok)

	d := eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)
	require.True(t, d.Allowed())

	require.Nil(t, store.CreateRule(&model.Rule{
		GroupID:         "staff",
		ResourcePattern: "/docs/guide",
		Action:          model.ActionReadPages,
		Effect:          model.EffectDeny,
	}))

	d = eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)
	assert.False(t, d.Allowed())
}

func TestProbeOption(t *testing.T) {
	eng, records, err := enginetest.NewTestEngine()
	require.NoError(t, err)
	defer eng.Close()

	eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages, options.SetProbeMode())

	select {
	case r := <-records:
		t.Fatalf("unexpected audit record for probe: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEffectivePermissions(t *testing.T) {
	eng, _, err := enginetest.NewTestEngine()
	require.NoError(t, err)
	defer eng.Close()

	perms := eng.EffectivePermissions(ctx, "alice", "/docs/guide")
	require.Len(t, perms, len(model.Actions()))
	assert.Equal(t, model.EffectAllow, perms[model.ActionReadPages])
	assert.Equal(t, model.EffectDeny, perms[model.ActionAdmin])
}

func TestMetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	eng, _, err := enginetest.NewTestEngine(options.WithMetrics(registry))
	require.NoError(t, err)
	defer eng.Close()

	eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["permengine_decisions_total"])
	assert.True(t, names["permengine_cache_misses_total"])
}

func TestWithoutCache(t *testing.T) {
	eng, records, err := enginetest.NewTestEngine(options.WithoutCache())
	require.NoError(t, err)
	defer eng.Close()

	eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)
	eng.Authorize(ctx, "alice", "/docs/guide", model.ActionReadPages)

	assert.False(t, nextRecord(t, records).CacheHit)
	assert.False(t, nextRecord(t, records).CacheHit)
}

func TestMockModeOverridesBackend(t *testing.T) {
	enginetest.SetupTestConfig()
	t.Setenv("PSE_MOCK_ENABLED", "true")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	eng, err := engine.New(
		options.WithAuditLog(auditlog.NewNullFactory()),
		options.WithBackend(local.NewFactory(enginetest.DatasetPath())),
	)
	require.NoError(t, err)
	defer eng.Close()

	// "mock-admin" exists only in the mock backend's fabricated data.
	d := eng.Authorize(ctx, "mock-admin", "/anything", model.ActionAdmin)
	assert.True(t, d.Allowed())
	assert.Equal(t, model.ReasonAdminOverride, d.Reason)

	d = eng.Authorize(ctx, "user-unavailable", "/anything", model.ActionReadPages)
	assert.False(t, d.Allowed())
	assert.Equal(t, model.ReasonUnavailable, d.Reason)
}
