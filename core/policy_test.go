package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	policy := &Policy{
		Admins:  []string{"root"},
		Oracles: []string{"oracle-bot"},
		Pausers: []string{"guardian"},
	}

	assert.True(t, Allowed("root", RoleAdmin, policy))
	assert.True(t, Allowed("root", RoleOracle, policy))
	assert.True(t, Allowed("root", RolePauser, policy))

	assert.True(t, Allowed("oracle-bot", RoleOracle, policy))
	assert.False(t, Allowed("oracle-bot", RoleAdmin, policy))
	assert.False(t, Allowed("oracle-bot", RolePauser, policy))

	assert.True(t, Allowed("guardian", RolePauser, policy))
	assert.False(t, Allowed("stranger", RolePauser, policy))
}
