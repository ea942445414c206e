//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package local implements an in-memory backend loaded from a YAML
// dataset file.
//
// The local backend serves two roles: it is the production backend for
// deployments whose identity and rule data fits in a single file, and
// it is the administrative write surface.  Mutations (groups, rules,
// memberships, user activation) validate their input, commit under the
// store lock, and synchronously notify the engine's cache invalidator
// before returning, so a caller observing a successful write can never
// be served a decision computed from the old data.
package local

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/common"
	"github.com/pagesentry/permengine/pkg/engine/backend"
	"github.com/pagesentry/permengine/pkg/engine/model"
)

var logger = logging.GetLogger("permengine.backend.local")

// Dataset is the YAML document format consumed by the local backend.
type Dataset struct {
	Users       []model.User       `yaml:"users"`
	Groups      []model.Group      `yaml:"groups"`
	Memberships []model.Membership `yaml:"memberships"`
	Rules       []model.Rule       `yaml:"rules"`
}

// Factory creates Store instances from a YAML dataset file.
type Factory struct {
	path string
}

// NewFactory creates a factory that loads the dataset at path when the
// engine requests a backend.
func NewFactory(path string) backend.Factory {
	return &Factory{path: path}
}

// NewBackend loads and validates the dataset and returns a ready Store.
func (f *Factory) NewBackend() (backend.Service, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dataset %s", f.path)
	}

	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, errors.Wrapf(err, "parsing dataset %s", f.path)
	}

	store, err := NewStore(&ds)
	if err != nil {
		return nil, errors.Wrapf(err, "loading dataset %s", f.path)
	}

	logger.SysInfof("local backend loaded: %d users, %d groups, %d rules",
		len(ds.Users), len(ds.Groups), len(ds.Rules))

	return store, nil
}

// Store is an in-memory identity and rule store.  It implements
// [backend.Service] for reads, [backend.InvalidationNotifier] so the
// engine can attach its cache, and a set of administrative write
// operations.
type Store struct {
	mu          sync.RWMutex
	users       map[string]model.User
	groups      map[string]model.Group
	memberships map[string]map[string]model.Membership // userID -> groupID
	rules       map[string]model.Rule
	invalidator backend.Invalidator
}

// NewStore builds a store from an in-memory dataset, validating every
// rule and cross-checking referential integrity.
func NewStore(ds *Dataset) (*Store, error) {
	s := &Store{
		users:       make(map[string]model.User),
		groups:      make(map[string]model.Group),
		memberships: make(map[string]map[string]model.Membership),
		rules:       make(map[string]model.Rule),
	}

	for _, u := range ds.Users {
		if u.ID == "" {
			return nil, errors.New("user with empty id")
		}
		if u.Role == "" {
			u.Role = model.RoleNormal
		}
		s.users[u.ID] = u
	}

	for _, g := range ds.Groups {
		if g.ID == "" {
			return nil, errors.New("group with empty id")
		}
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now()
		}
		s.groups[g.ID] = g
	}

	for _, m := range ds.Memberships {
		if _, ok := s.users[m.UserID]; !ok {
			return nil, errors.Errorf("membership references unknown user %q", m.UserID)
		}
		if _, ok := s.groups[m.GroupID]; !ok {
			return nil, errors.Errorf("membership references unknown group %q", m.GroupID)
		}
		if m.AssignedAt.IsZero() {
			m.AssignedAt = time.Now()
		}
		if s.memberships[m.UserID] == nil {
			s.memberships[m.UserID] = make(map[string]model.Membership)
		}
		s.memberships[m.UserID][m.GroupID] = m
	}

	for _, r := range ds.Rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		if perr := model.ValidateRule(&r); perr != nil {
			return nil, errors.Errorf("rule %q: %s", r.ID, perr.Error())
		}
		if _, ok := s.groups[r.GroupID]; !ok {
			return nil, errors.Errorf("rule %q references unknown group %q", r.ID, r.GroupID)
		}
		s.rules[r.ID] = r
	}

	return s, nil
}

// SetInvalidator attaches the engine's cache invalidator.  Mutations
// notify it synchronously before they return.
func (s *Store) SetInvalidator(inv backend.Invalidator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidator = inv
}

func (s *Store) getInvalidator() backend.Invalidator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidator
}

// GetUser retrieves a user by principal ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, *common.PermError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.Errorf(common.ReasonNotFound, "unknown user %q", id)
	}
	return &u, nil
}

// MembershipsOf returns the IDs of all groups the user belongs to.
func (s *Store) MembershipsOf(ctx context.Context, userID string) ([]string, *common.PermError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]string, 0, len(s.memberships[userID]))
	for groupID := range s.memberships[userID] {
		groups = append(groups, groupID)
	}
	return groups, nil
}

// RulesForGroups returns the rules belonging to any of the given groups,
// filtered to the given action.
func (s *Store) RulesForGroups(ctx context.Context, groupIDs []string, action model.Action) ([]model.Rule, *common.PermError) {
	wanted := make(map[string]bool, len(groupIDs))
	for _, g := range groupIDs {
		wanted[g] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []model.Rule
	for _, r := range s.rules {
		if wanted[r.GroupID] && r.Action == action {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// Snapshot returns a deep copy of the store's current contents.
func (s *Store) Snapshot() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds := &Dataset{}
	for _, u := range s.users {
		ds.Users = append(ds.Users, u)
	}
	for _, g := range s.groups {
		ds.Groups = append(ds.Groups, g)
	}
	for _, byGroup := range s.memberships {
		for _, m := range byGroup {
			ds.Memberships = append(ds.Memberships, m)
		}
	}
	for _, r := range s.rules {
		ds.Rules = append(ds.Rules, r)
	}

	return deepcopy.Copy(ds).(*Dataset)
}

// CreateGroup adds a new group.  The ID is generated when empty.
func (s *Store) CreateGroup(group *model.Group) *common.PermError {
	if group.Name == "" {
		return common.NewError(common.ReasonValidation, "group name must not be empty")
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if _, ok := s.groups[group.ID]; ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonValidation, "group %q already exists", group.ID)
	}
	s.groups[group.ID] = *group
	s.mu.Unlock()

	// A new group has no members or rules, so nothing cached can refer
	// to it; no invalidation needed.
	return nil
}

// DeleteGroup removes a group, cascading to its rules and memberships,
// and invalidates all cached decisions that consulted it.
func (s *Store) DeleteGroup(groupID string) *common.PermError {
	s.mu.Lock()
	if _, ok := s.groups[groupID]; !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "unknown group %q", groupID)
	}

	delete(s.groups, groupID)
	for id, r := range s.rules {
		if r.GroupID == groupID {
			delete(s.rules, id)
		}
	}
	for userID, byGroup := range s.memberships {
		delete(byGroup, groupID)
		if len(byGroup) == 0 {
			delete(s.memberships, userID)
		}
	}
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateGroup(groupID)
	}
	return nil
}

// CreateRule validates and adds a rule, then invalidates all cached
// decisions that consulted the rule's group.
func (s *Store) CreateRule(rule *model.Rule) *common.PermError {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if perr := model.ValidateRule(rule); perr != nil {
		return perr
	}

	s.mu.Lock()
	if _, ok := s.groups[rule.GroupID]; !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonValidation, "rule references unknown group %q", rule.GroupID)
	}
	if _, ok := s.rules[rule.ID]; ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonValidation, "rule %q already exists", rule.ID)
	}
	s.rules[rule.ID] = *rule
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateGroup(rule.GroupID)
	}
	return nil
}

// DeleteRule removes a rule and invalidates all cached decisions that
// consulted its group.
func (s *Store) DeleteRule(ruleID string) *common.PermError {
	s.mu.Lock()
	r, ok := s.rules[ruleID]
	if !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "unknown rule %q", ruleID)
	}
	delete(s.rules, ruleID)
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateGroup(r.GroupID)
	}
	return nil
}

// AssignUser adds the user to the group and invalidates the user's
// cached decisions.
func (s *Store) AssignUser(userID, groupID string) *common.PermError {
	s.mu.Lock()
	if _, ok := s.users[userID]; !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "unknown user %q", userID)
	}
	if _, ok := s.groups[groupID]; !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "unknown group %q", groupID)
	}
	if s.memberships[userID] == nil {
		s.memberships[userID] = make(map[string]model.Membership)
	}
	s.memberships[userID][groupID] = model.Membership{
		UserID:     userID,
		GroupID:    groupID,
		AssignedAt: time.Now(),
	}
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateUser(userID)
	}
	return nil
}

// RemoveUser removes the user from the group and invalidates the user's
// cached decisions.
func (s *Store) RemoveUser(userID, groupID string) *common.PermError {
	s.mu.Lock()
	byGroup := s.memberships[userID]
	if _, ok := byGroup[groupID]; !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "user %q is not a member of group %q", userID, groupID)
	}
	delete(byGroup, groupID)
	if len(byGroup) == 0 {
		delete(s.memberships, userID)
	}
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateUser(userID)
	}
	return nil
}

// SetUserActive flips the user's active flag and invalidates the user's
// cached decisions.
func (s *Store) SetUserActive(userID string, active bool) *common.PermError {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return common.Errorf(common.ReasonNotFound, "unknown user %q", userID)
	}
	u.Active = active
	s.users[userID] = u
	s.mu.Unlock()

	if inv := s.getInvalidator(); inv != nil {
		inv.InvalidateUser(userID)
	}
	return nil
}
