//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package engine provides the public API of the permission engine.
//
// The engine answers one question: may this principal perform this
// action on this resource?  Decisions are deny-by-default, computed
// from group-scoped path-pattern rules, memoized in a TTL cache, and
// audited asynchronously.
//
// # Basic Usage
//
//	eng, err := engine.New(
//		options.WithBackend(local.NewFactory("dataset.yaml")),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	decision := eng.Authorize(ctx, "alice", "/docs/readme", model.ActionReadPages)
//	if decision.Allowed() {
//		// serve the page
//	}
package engine

import (
	"context"

	"github.com/pkg/errors"

	internal "github.com/pagesentry/permengine/internal/engine"
	"github.com/pagesentry/permengine/internal/engine/backend/mock"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend"
	"github.com/pagesentry/permengine/pkg/engine/config"
	"github.com/pagesentry/permengine/pkg/engine/metrics"
	"github.com/pagesentry/permengine/pkg/engine/model"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

// Engine is the public interface of the permission engine.
//
// All methods are safe for concurrent use.
type Engine interface {
	// Authorize evaluates whether the principal may perform the action
	// on the resource.  It always returns a usable decision; failures
	// surface as denials with an explanatory reason, never as errors.
	Authorize(ctx context.Context, principalID, resourcePath string, action model.Action, opts ...options.AuthzOption) model.Decision

	// EffectivePermissions computes the effect for every known action on
	// the resource.  Intended for UI affordance queries; the underlying
	// evaluations are probes and emit no audit records.
	EffectivePermissions(ctx context.Context, principalID, resourcePath string) map[model.Action]model.Effect

	// InvalidateUser drops all cached decisions for the user.
	InvalidateUser(userID string)

	// InvalidateGroup drops all cached decisions that consulted the group.
	InvalidateGroup(groupID string)

	// InvalidateAll drops every cached decision.
	InvalidateAll()

	// Backend exposes the underlying backend service, e.g. to reach the
	// local backend's administrative write operations.
	Backend() backend.Service

	// Close flushes pending audit records and releases resources.
	Close()
}

type engineImpl struct {
	core *internal.Engine
}

// New creates an engine from the supplied options, loading configuration
// first.
//
// Defaults when options are omitted: audit records go to stdout, the
// mock backend serves fabricated data, the decision cache is enabled
// with the configured TTL, and metrics are disabled.
func New(opts ...options.EngineOption) (Engine, error) {
	if err := config.Load(); err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}

	eo := &options.EngineOptions{}
	for _, opt := range opts {
		opt(eo)
	}

	if eo.AuditLogFactory == nil {
		eo.AuditLogFactory = auditlog.NewStdoutFactory()
	}
	if eo.BackendFactory == nil {
		eo.BackendFactory = mock.NewFactory()
	}

	stream, err := eo.AuditLogFactory.NewStream()
	if err != nil {
		return nil, errors.Wrap(err, "creating audit stream")
	}

	be, err := eo.BackendFactory.NewBackend()
	if err != nil {
		stream.Close()
		return nil, errors.Wrap(err, "creating backend")
	}

	var m *metrics.Metrics
	if eo.Registerer != nil {
		m = metrics.New(eo.Registerer)
	}

	ttl := eo.CacheTTL
	if ttl == 0 {
		ttl = config.GetCacheTTL()
	}

	core := internal.New(&internal.Config{
		Backend:     be,
		Stream:      stream,
		AuditBuffer: config.VConfig.GetInt(config.AuditBuffer),
		AuditEnv:    config.GetAuditEnv(),
		CacheTTL:    ttl,
		CacheOff:    eo.CacheDisabled || !config.VConfig.GetBool(config.CacheEnabled),
		Metrics:     m,
	})

	return &engineImpl{core: core}, nil
}

func (e *engineImpl) Authorize(ctx context.Context, principalID, resourcePath string, action model.Action, opts ...options.AuthzOption) model.Decision {
	ao := &options.AuthzOptions{}
	for _, opt := range opts {
		opt(ao)
	}
	return e.core.Authorize(ctx, principalID, resourcePath, action, ao)
}

func (e *engineImpl) EffectivePermissions(ctx context.Context, principalID, resourcePath string) map[model.Action]model.Effect {
	return e.core.EffectivePermissions(ctx, principalID, resourcePath)
}

func (e *engineImpl) InvalidateUser(userID string) {
	e.core.InvalidateUser(userID)
}

func (e *engineImpl) InvalidateGroup(groupID string) {
	e.core.InvalidateGroup(groupID)
}

func (e *engineImpl) InvalidateAll() {
	e.core.InvalidateAll()
}

func (e *engineImpl) Backend() backend.Service {
	return e.core.Backend()
}

func (e *engineImpl) Close() {
	e.core.Close()
}
