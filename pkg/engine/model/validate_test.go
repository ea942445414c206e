//
//  Copyright © PageSentry Labs. All rights reserved.
//

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagesentry/permengine/pkg/common"
)

func TestParseAction(t *testing.T) {
	a, perr := ParseAction("read_pages")
	require.Nil(t, perr)
	assert.Equal(t, ActionReadPages, a)

	_, perr = ParseAction("launch_missiles")
	require.NotNil(t, perr)
	assert.Equal(t, common.ReasonValidation, perr.Code)

	_, perr = ParseAction("")
	assert.NotNil(t, perr)
}

func TestParseEffect(t *testing.T) {
	e, perr := ParseEffect("deny")
	require.Nil(t, perr)
	assert.Equal(t, EffectDeny, e)

	_, perr = ParseEffect("maybe")
	require.NotNil(t, perr)
	assert.Equal(t, common.ReasonValidation, perr.Code)
}

func TestValidatePattern(t *testing.T) {
	valid := []string{
		"/",
		"/docs",
		"/docs/readme",
		"/docs/*",
		"/docs/**",
		"/team/*/assets/*",
		"/a-b/c_d/e.f",
	}
	for _, p := range valid {
		assert.Nil(t, ValidatePattern(p), "expected %q to be valid", p)
	}

	invalid := []string{
		"",
		"docs/readme",
		"/docs//readme",
		"/docs/**/readme",
		"/docs/read*",
		"/docs/re?dme",
		"/docs/sp ace",
	}
	for _, p := range invalid {
		assert.NotNil(t, ValidatePattern(p), "expected %q to be invalid", p)
	}
}

func TestValidateRule(t *testing.T) {
	good := Rule{
		GroupID:         "editors",
		ResourcePattern: "/docs/**",
		Action:          ActionEditPages,
		Effect:          EffectAllow,
	}
	assert.Nil(t, ValidateRule(&good))

	noGroup := good
	noGroup.GroupID = ""
	assert.NotNil(t, ValidateRule(&noGroup))

	badAction := good
	badAction.Action = "publish"
	assert.NotNil(t, ValidateRule(&badAction))

	badEffect := good
	badEffect.Effect = "audit"
	assert.NotNil(t, ValidateRule(&badEffect))
}
