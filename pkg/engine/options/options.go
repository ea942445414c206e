//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package options defines the functional options accepted by the engine
// constructor and by individual authorize calls.
package options

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend"
	"github.com/pagesentry/permengine/pkg/engine/config"
)

var logger = logging.GetLogger("permengine.options")

// EngineOptions carries the resolved construction-time options for the
// engine.  Zero values mean "use the configured or built-in default".
type EngineOptions struct {
	// AuditLogFactory produces the stream that receives audit records.
	AuditLogFactory auditlog.Factory

	// BackendFactory produces the identity and rule backend.
	BackendFactory backend.Factory

	// CacheTTL overrides the configured decision cache TTL when non-zero.
	CacheTTL time.Duration

	// CacheDisabled bypasses the decision cache entirely.
	CacheDisabled bool

	// Registerer, when non-nil, enables Prometheus instrumentation
	// registered against it.
	Registerer prometheus.Registerer
}

// EngineOption mutates EngineOptions during engine construction.
type EngineOption func(*EngineOptions)

// WithAuditLog sets the audit log factory.  The default writes JSON
// records to stdout.
func WithAuditLog(factory auditlog.Factory) EngineOption {
	return func(o *EngineOptions) {
		o.AuditLogFactory = factory
	}
}

// WithBackend sets the backend factory.
//
// When mock mode is enabled via configuration (PSE_MOCK_ENABLED=true),
// the option is ignored with a warning and the engine runs against its
// mock backend instead.  This lets applications under test force the
// mock without code changes.
func WithBackend(factory backend.Factory) EngineOption {
	return func(o *EngineOptions) {
		if config.VConfig.GetBool(config.MockEnabled) {
			logger.SysWarnf("mock mode enabled, ignoring configured backend")
			return
		}
		o.BackendFactory = factory
	}
}

// WithCacheTTL overrides the decision cache TTL.
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(o *EngineOptions) {
		o.CacheTTL = ttl
	}
}

// WithoutCache disables the decision cache.  Every authorize call goes
// through full evaluation.
func WithoutCache() EngineOption {
	return func(o *EngineOptions) {
		o.CacheDisabled = true
	}
}

// WithMetrics enables Prometheus instrumentation, registering the
// engine's collectors against reg.
func WithMetrics(reg prometheus.Registerer) EngineOption {
	return func(o *EngineOptions) {
		o.Registerer = reg
	}
}

// AuthzOptions carries per-call options for Authorize.
type AuthzOptions struct {
	// Probe marks the call as a non-attributable probe: the decision is
	// computed (and cached) normally but no audit record is emitted.
	// Decision points use probes for speculative checks such as UI
	// affordance queries.
	Probe bool
}

// AuthzOption mutates AuthzOptions for a single authorize call.
type AuthzOption func(*AuthzOptions)

// SetProbeMode marks the authorize call as a probe, suppressing its
// audit record.
func SetProbeMode() AuthzOption {
	return func(o *AuthzOptions) {
		o.Probe = true
	}
}
