//
//  Copyright © PageSentry Labs. All rights reserved.
//

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagesentry/permengine/pkg/engine/model"
)

func testDecision(principal, path string, groups ...string) model.Decision {
	return model.Decision{
		PrincipalID:  principal,
		ResourcePath: path,
		Action:       model.ActionReadPages,
		Effect:       model.EffectAllow,
		Reason:       model.ReasonDefaultNormal,
		ComputedAt:   time.Now(),
		Groups:       groups,
	}
}

func testKey(principal, path string) Key {
	return Key{PrincipalID: principal, ResourcePath: path, Action: model.ActionReadPages}
}

func TestGetPut(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	key := testKey("alice", "/docs/readme")

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, testDecision("alice", "/docs/readme", "g1"))

	d, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "alice", d.PrincipalID)
	assert.True(t, d.Allowed())
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Stop()

	key := testKey("alice", "/docs/readme")
	c.Put(key, testDecision("alice", "/docs/readme"))

	_, ok := c.Get(key)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get(key)
	assert.False(t, ok, "expired entries must not be served")
}

func TestInvalidateUser(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Put(testKey("alice", "/a"), testDecision("alice", "/a"))
	c.Put(testKey("alice", "/b"), testDecision("alice", "/b"))
	c.Put(testKey("bob", "/a"), testDecision("bob", "/a"))

	c.InvalidateUser("alice")

	_, ok := c.Get(testKey("alice", "/a"))
	assert.False(t, ok)
	_, ok = c.Get(testKey("alice", "/b"))
	assert.False(t, ok)
	_, ok = c.Get(testKey("bob", "/a"))
	assert.True(t, ok, "other principals must be unaffected")
}

func TestInvalidateGroup(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Put(testKey("alice", "/a"), testDecision("alice", "/a", "editors", "staff"))
	c.Put(testKey("bob", "/a"), testDecision("bob", "/a", "staff"))
	c.Put(testKey("carol", "/a"), testDecision("carol", "/a", "viewers"))

	c.InvalidateGroup("staff")

	_, ok := c.Get(testKey("alice", "/a"))
	assert.False(t, ok)
	_, ok = c.Get(testKey("bob", "/a"))
	assert.False(t, ok)
	_, ok = c.Get(testKey("carol", "/a"))
	assert.True(t, ok, "decisions that never consulted the group survive")
}

func TestInvalidateAll(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Put(testKey("alice", "/a"), testDecision("alice", "/a"))
	c.Put(testKey("bob", "/b"), testDecision("bob", "/b"))

	c.InvalidateAll()
	assert.Zero(t, c.Len())
}

func TestKeyIncludesAction(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	read := Key{PrincipalID: "alice", ResourcePath: "/a", Action: model.ActionReadPages}
	edit := Key{PrincipalID: "alice", ResourcePath: "/a", Action: model.ActionEditPages}

	c.Put(read, testDecision("alice", "/a"))

	_, ok := c.Get(edit)
	assert.False(t, ok, "different actions are distinct cache entries")
}
