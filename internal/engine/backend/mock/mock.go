//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package mock implements a configuration-driven backend for testing
// applications that embed the permission engine.
//
// The mock serves a small built-in dataset and derives principals on
// the fly from their IDs, so tests can exercise any decision path
// without provisioning data:
//
//   - IDs containing "admin" resolve to active admins
//   - IDs containing "inactive" resolve to inactive users
//   - IDs containing "unknown" resolve to no user at all
//   - IDs containing "unavailable" simulate a backend outage
//   - everything else resolves to an active normal user in the
//     "mock-editors" group
package mock

import (
	"context"
	"strings"
	"time"

	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/common"
	"github.com/pagesentry/permengine/pkg/engine/backend"
	"github.com/pagesentry/permengine/pkg/engine/model"
)

var logger = logging.GetLogger("permengine.backend.mock")

// Factory creates mock backend instances.
type Factory struct {
}

// NewFactory creates a mock backend factory.
func NewFactory() backend.Factory {
	return &Factory{}
}

// NewBackend creates the mock service and loudly announces it, since a
// mock backend in production would grant decisions from fabricated data.
func (f *Factory) NewBackend() (backend.Service, error) {
	logger.SysWarnf("--------------------------------------------------")
	logger.SysWarnf("             RUNNING IN MOCK MODE")
	logger.SysWarnf(" All identity and rule data is fabricated.  Never")
	logger.SysWarnf(" run this backend in a production deployment.")
	logger.SysWarnf("--------------------------------------------------")

	return &service{
		rules: []model.Rule{
			{
				ID:              "mock-allow-docs",
				GroupID:         "mock-editors",
				ResourcePattern: "/docs/**",
				Action:          model.ActionEditPages,
				Effect:          model.EffectAllow,
				CreatedAt:       time.Unix(0, 0),
			},
			{
				ID:              "mock-deny-secrets",
				GroupID:         "mock-editors",
				ResourcePattern: "/secrets/**",
				Action:          model.ActionReadPages,
				Effect:          model.EffectDeny,
				CreatedAt:       time.Unix(0, 0),
			},
		},
	}, nil
}

type service struct {
	rules []model.Rule
}

func unavailable(id string) *common.PermError {
	if strings.Contains(id, "unavailable") {
		return common.Errorf(common.ReasonUnavailable, "mock backend outage for %q", id)
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, id string) (*model.User, *common.PermError) {
	if perr := unavailable(id); perr != nil {
		return nil, perr
	}
	if strings.Contains(id, "unknown") {
		return nil, common.Errorf(common.ReasonNotFound, "unknown user %q", id)
	}

	u := &model.User{ID: id, Role: model.RoleNormal, Active: true}
	if strings.Contains(id, "admin") {
		u.Role = model.RoleAdmin
	}
	if strings.Contains(id, "inactive") {
		u.Active = false
	}
	return u, nil
}

func (s *service) MembershipsOf(ctx context.Context, userID string) ([]string, *common.PermError) {
	if perr := unavailable(userID); perr != nil {
		return nil, perr
	}
	return []string{"mock-editors"}, nil
}

func (s *service) RulesForGroups(ctx context.Context, groupIDs []string, action model.Action) ([]model.Rule, *common.PermError) {
	wanted := make(map[string]bool, len(groupIDs))
	for _, g := range groupIDs {
		wanted[g] = true
	}

	var rules []model.Rule
	for _, r := range s.rules {
		if wanted[r.GroupID] && r.Action == action {
			rules = append(rules, r)
		}
	}
	return rules, nil
}
