package guild_test

import (
	"testing"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/stretchr/testify/assert"
)

func TestConfigRole(t *testing.T) {
	var nilCfg *guild.Config
	assert.Equal(t, guild.DefaultRoleName, nilCfg.Role())
	assert.Equal(t, guild.DefaultRoleName, (&guild.Config{}).Role())
	assert.Equal(t, "Members", (&guild.Config{RoleName: "Members"}).Role())
}

func TestConfigAllowsDomain(t *testing.T) {
	cfg := &guild.Config{Domains: []string{"csi.edu"}}
	assert.True(t, cfg.AllowsDomain("csi.edu"))
	assert.False(t, cfg.AllowsDomain("CSI.EDU"), "membership is an exact match")
	assert.False(t, cfg.AllowsDomain("other.com"))

	var nilCfg *guild.Config
	assert.False(t, nilCfg.AllowsDomain("csi.edu"))
}

func TestCapabilitiesSufficient(t *testing.T) {
	assert.True(t, guild.Capabilities{ManageRoles: true, ViewChannel: true}.Sufficient())
	assert.False(t, guild.Capabilities{ManageRoles: true}.Sufficient())
	assert.False(t, guild.Capabilities{ViewChannel: true}.Sufficient())
}
