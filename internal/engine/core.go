//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package engine implements the authorization evaluator behind the
// public engine API.
//
// The decision procedure, in order:
//
//  1. Resolve the principal.  Unknown or inactive principals are denied
//     as unauthenticated.
//  2. Active admins are allowed unconditionally (admin-override); no
//     rules are consulted.
//  3. Candidate rules are gathered for the principal's groups and the
//     requested action, and matched against the resource path.  The
//     winner is the most specific match; at equal specificity deny beats
//     allow, and among equals the newest rule wins.
//  4. With no matching rule, normal users fall back to the default
//     normal permission (read_pages and edit_pages allowed); everything
//     else is deny-by-default.
//
// Any backend failure at any step resolves to Deny with the
// "unavailable" reason.  Unavailable decisions are never cached.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pagesentry/permengine/internal/engine/cache"
	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/common"
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
	"github.com/pagesentry/permengine/pkg/engine/backend"
	"github.com/pagesentry/permengine/pkg/engine/metrics"
	"github.com/pagesentry/permengine/pkg/engine/model"
	"github.com/pagesentry/permengine/pkg/engine/options"
	"github.com/pagesentry/permengine/pkg/engine/pattern"
)

var logger = logging.GetLogger("permengine.engine")

// Engine evaluates authorization requests against a backend, memoizing
// decisions in a TTL cache and emitting an audit record per request.
type Engine struct {
	backend  backend.Service
	cache    *cache.Cache // nil when the cache is disabled
	emitter  *auditlog.Emitter
	metrics  *metrics.Metrics
	auditEnv map[string]string
}

// Config carries the fully-resolved construction parameters.  The
// public engine package assembles it from options and configuration.
type Config struct {
	Backend     backend.Service
	Stream      auditlog.Stream
	AuditBuffer int
	AuditEnv    map[string]string
	CacheTTL    time.Duration
	CacheOff    bool
	Metrics     *metrics.Metrics
}

// New creates the evaluator.  If the backend supports invalidation
// notifications, the engine's cache is attached to it here, before any
// decision can be computed.
func New(cfg *Config) *Engine {
	e := &Engine{
		backend:  cfg.Backend,
		emitter:  auditlog.NewEmitter(cfg.Stream, cfg.AuditBuffer),
		metrics:  cfg.Metrics,
		auditEnv: cfg.AuditEnv,
	}

	e.emitter.SetDropHook(e.metrics.ObserveAuditDrop)

	if !cfg.CacheOff {
		e.cache = cache.New(cfg.CacheTTL)
	}

	if notifier, ok := cfg.Backend.(backend.InvalidationNotifier); ok {
		notifier.SetInvalidator(e)
	}

	return e
}

// Authorize evaluates a single access request.
func (e *Engine) Authorize(ctx context.Context, principalID, resourcePath string, action model.Action, authz *options.AuthzOptions) model.Decision {
	start := time.Now()
	key := cache.Key{PrincipalID: principalID, ResourcePath: resourcePath, Action: action}

	if e.cache != nil {
		if decision, ok := e.cache.Get(key); ok {
			e.observe(decision, true, time.Since(start), authz)
			return decision
		}
	}

	decision := e.evaluate(ctx, principalID, resourcePath, action)

	// Decisions produced by backend failure reflect the outage, not the
	// rule set; caching them would keep denying after recovery.
	if e.cache != nil && decision.Reason != model.ReasonUnavailable {
		e.cache.Put(key, decision)
	}

	e.observe(decision, false, time.Since(start), authz)
	return decision
}

// EffectivePermissions computes the decision for every known action on
// the given path.  The calls are probes; no audit records are emitted.
func (e *Engine) EffectivePermissions(ctx context.Context, principalID, resourcePath string) map[model.Action]model.Effect {
	probe := &options.AuthzOptions{Probe: true}

	result := make(map[model.Action]model.Effect, len(model.Actions()))
	for _, action := range model.Actions() {
		result[action] = e.Authorize(ctx, principalID, resourcePath, action, probe).Effect
	}
	return result
}

func deny(principalID, resourcePath string, action model.Action, reason string) model.Decision {
	return model.Decision{
		PrincipalID:  principalID,
		ResourcePath: resourcePath,
		Action:       action,
		Effect:       model.EffectDeny,
		Reason:       reason,
		ComputedAt:   time.Now(),
	}
}

// failClosed maps a backend error to a denial.  NotFound means an
// unknown principal; everything else is treated as an outage.
func failClosed(principalID, resourcePath string, action model.Action, perr *common.PermError) model.Decision {
	if perr.Code == common.ReasonNotFound {
		return deny(principalID, resourcePath, action, model.ReasonUnauthenticated)
	}
	logger.Errorf(principalID, string(action), "backend failure, denying: %s", perr.Error())
	return deny(principalID, resourcePath, action, model.ReasonUnavailable)
}

func (e *Engine) evaluate(ctx context.Context, principalID, resourcePath string, action model.Action) model.Decision {
	user, perr := e.backend.GetUser(ctx, principalID)
	if perr != nil {
		return failClosed(principalID, resourcePath, action, perr)
	}

	// Inactive principals are unauthenticated even when they hold the
	// admin role; deactivation must cut off access immediately.
	if !user.Active {
		return deny(principalID, resourcePath, action, model.ReasonUnauthenticated)
	}

	if user.Role == model.RoleAdmin {
		return model.Decision{
			PrincipalID:  principalID,
			ResourcePath: resourcePath,
			Action:       action,
			Effect:       model.EffectAllow,
			Reason:       model.ReasonAdminOverride,
			ComputedAt:   time.Now(),
		}
	}

	groups, perr := e.backend.MembershipsOf(ctx, principalID)
	if perr != nil {
		return failClosed(principalID, resourcePath, action, perr)
	}

	rules, perr := e.backend.RulesForGroups(ctx, groups, action)
	if perr != nil {
		return failClosed(principalID, resourcePath, action, perr)
	}

	winner, found := selectWinner(rules, resourcePath)

	decision := model.Decision{
		PrincipalID:  principalID,
		ResourcePath: resourcePath,
		Action:       action,
		ComputedAt:   time.Now(),
		Groups:       groups,
	}

	switch {
	case found:
		decision.Effect = winner.Effect
		decision.MatchedRuleID = winner.ID
		decision.Reason = model.MatchedRuleReason(winner.ID)
	case action == model.ActionReadPages || action == model.ActionEditPages:
		decision.Effect = model.EffectAllow
		decision.Reason = model.ReasonDefaultNormal
	default:
		decision.Effect = model.EffectDeny
		decision.Reason = model.ReasonDenyByDefault
	}

	return decision
}

// selectWinner matches the path against every candidate rule and picks
// the winning rule: highest specificity, then deny over allow, then the
// most recently created.
func selectWinner(rules []model.Rule, resourcePath string) (model.Rule, bool) {
	var (
		winner model.Rule
		best   int
		found  bool
	)

	for _, rule := range rules {
		matched, specificity := pattern.Match(rule.ResourcePattern, resourcePath)
		if !matched {
			continue
		}

		if !found {
			winner, best, found = rule, specificity, true
			continue
		}

		switch {
		case specificity != best:
			if specificity > best {
				winner, best = rule, specificity
			}
		case (rule.Effect == model.EffectDeny) != (winner.Effect == model.EffectDeny):
			if rule.Effect == model.EffectDeny {
				winner = rule
			}
		case rule.CreatedAt.After(winner.CreatedAt):
			winner = rule
		}
	}

	return winner, found
}

func (e *Engine) observe(decision model.Decision, cacheHit bool, elapsed time.Duration, authz *options.AuthzOptions) {
	e.metrics.ObserveDecision(string(decision.Effect), decision.Reason, cacheHit, elapsed)

	if authz != nil && authz.Probe {
		return
	}

	e.emitter.Emit(&auditlog.Record{
		ID:            uuid.NewString(),
		Timestamp:     decision.ComputedAt,
		PrincipalID:   decision.PrincipalID,
		ResourcePath:  decision.ResourcePath,
		Action:        string(decision.Action),
		Effect:        string(decision.Effect),
		Reason:        decision.Reason,
		MatchedRuleID: decision.MatchedRuleID,
		CacheHit:      cacheHit,
		Duration:      elapsed,
		Metadata:      e.auditEnv,
	})
}

// InvalidateUser drops all cached decisions for the user.
func (e *Engine) InvalidateUser(userID string) {
	if e.cache != nil {
		e.cache.InvalidateUser(userID)
	}
	e.metrics.ObserveInvalidation("user")
}

// InvalidateGroup drops all cached decisions that consulted the group.
func (e *Engine) InvalidateGroup(groupID string) {
	if e.cache != nil {
		e.cache.InvalidateGroup(groupID)
	}
	e.metrics.ObserveInvalidation("group")
}

// InvalidateAll drops every cached decision.
func (e *Engine) InvalidateAll() {
	if e.cache != nil {
		e.cache.InvalidateAll()
	}
	e.metrics.ObserveInvalidation("all")
}

// Backend exposes the underlying backend service.
func (e *Engine) Backend() backend.Service {
	return e.backend
}

// Close flushes the audit emitter and stops the cache janitor.
func (e *Engine) Close() {
	e.emitter.Close()
	if e.cache != nil {
		e.cache.Stop()
	}
}
