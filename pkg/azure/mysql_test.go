package azure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serverWithAccess(access string) *MySQLServer {
	s := &MySQLServer{Name: "db1"}
	s.Network.PublicNetworkAccess = access
	return s
}

func TestIsPubliclyAccessible(t *testing.T) {
	rule := FirewallRule{Name: "office", StartIPAddress: "198.51.100.1", EndIPAddress: "198.51.100.1"}

	tests := []struct {
		name     string
		server   *MySQLServer
		rules    []FirewallRule
		expected bool
	}{
		{"enabled with rules", serverWithAccess("Enabled"), []FirewallRule{rule}, true},
		{"enabled but zero rules is private", serverWithAccess("Enabled"), nil, false},
		{"disabled with rules", serverWithAccess("Disabled"), []FirewallRule{rule}, false},
		{"disabled without rules", serverWithAccess("Disabled"), nil, false},
		{"case insensitive access value", serverWithAccess("enabled"), []FirewallRule{rule}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPubliclyAccessible(tt.server, tt.rules))
		})
	}
}

func TestPublicNetworkAccessFallback(t *testing.T) {
	// Older az output carries the field at the top level instead of under
	// the network section.
	s := &MySQLServer{PublicNetworkAccess: "Enabled"}
	assert.Equal(t, "Enabled", s.publicNetworkAccess())

	s.Network.PublicNetworkAccess = "Disabled"
	assert.Equal(t, "Disabled", s.publicNetworkAccess())
}

func TestJumpServerRuleName(t *testing.T) {
	name := JumpServerRuleName()
	assert.True(t, strings.HasPrefix(name, "jumpserver-access-"))
	assert.Greater(t, len(name), len("jumpserver-access-"))
}
