package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// MySQLServer is an Azure Database for MySQL flexible server.
type MySQLServer struct {
	Name                string `json:"name"`
	ResourceGroup       string `json:"resourceGroup"`
	FQDN                string `json:"fullyQualifiedDomainName"`
	Location            string `json:"location"`
	State               string `json:"state"`
	Version             string `json:"version"`
	AdministratorLogin  string `json:"administratorLogin"`
	PublicNetworkAccess string `json:"publicNetworkAccess,omitempty"`
	Network             struct {
		PublicNetworkAccess string `json:"publicNetworkAccess"`
	} `json:"network"`
}

// FirewallRule is a flexible-server firewall entry.
type FirewallRule struct {
	Name           string `json:"name"`
	StartIPAddress string `json:"startIpAddress"`
	EndIPAddress   string `json:"endIpAddress"`
}

// ListMySQLServers returns every flexible server visible to the session.
func ListMySQLServers(ctx context.Context) ([]MySQLServer, error) {
	var servers []MySQLServer
	if err := e.ExecuteAzJSON(ctx, []string{"mysql", "flexible-server", "list"}, &servers); err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("%w: no MySQL flexible servers in the current subscription", errUtils.ErrNoResults)
	}
	return servers, nil
}

// GetMySQLServer fetches one flexible server by name.
func GetMySQLServer(ctx context.Context, resourceGroup string, name string) (*MySQLServer, error) {
	var server MySQLServer
	err := e.ExecuteAzJSON(ctx, []string{
		"mysql", "flexible-server", "show",
		"--resource-group", resourceGroup,
		"--name", name,
	}, &server)
	if err != nil {
		return nil, err
	}
	if server.Name == "" {
		return nil, fmt.Errorf("%w: MySQL server %s", errUtils.ErrNotFound, name)
	}
	return &server, nil
}

func (s *MySQLServer) publicNetworkAccess() string {
	if s.Network.PublicNetworkAccess != "" {
		return s.Network.PublicNetworkAccess
	}
	return s.PublicNetworkAccess
}

// ListFirewallRules returns the server's firewall entries.
func ListFirewallRules(ctx context.Context, resourceGroup string, serverName string) ([]FirewallRule, error) {
	var rules []FirewallRule
	err := e.ExecuteAzJSON(ctx, []string{
		"mysql", "flexible-server", "firewall-rule", "list",
		"--resource-group", resourceGroup,
		"--name", serverName,
	}, &rules)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// IsPubliclyAccessible reports whether the server can be reached directly.
// A server with public network access enabled but zero firewall rules
// still rejects every client, so it is treated as private.
func IsPubliclyAccessible(server *MySQLServer, rules []FirewallRule) bool {
	if !strings.EqualFold(server.publicNetworkAccess(), "Enabled") {
		return false
	}
	return len(rules) > 0
}

// JumpServerRuleName returns the firewall-rule name used to admit a jump
// server, unique per invocation so stale rules are identifiable.
func JumpServerRuleName() string {
	return fmt.Sprintf("jumpserver-access-%d", time.Now().Unix())
}

// AddFirewallRule admits a single address to the server.
func AddFirewallRule(ctx context.Context, resourceGroup string, serverName string, ruleName string, ip string) error {
	_, err := e.ExecuteCommandAndReturnOutput(ctx, "az", []string{
		"mysql", "flexible-server", "firewall-rule", "create",
		"--resource-group", resourceGroup,
		"--name", serverName,
		"--rule-name", ruleName,
		"--start-ip-address", ip,
		"--end-ip-address", ip,
		"--output", "none",
	}, nil)
	if err != nil {
		return err
	}
	log.Info("Firewall rule added", "rule", ruleName, "ip", ip)
	return nil
}

// DeleteFirewallRule removes a rule. Used during cleanup, so failures are
// reported to the caller but expected to be suppressed there.
func DeleteFirewallRule(ctx context.Context, resourceGroup string, serverName string, ruleName string) error {
	_, err := e.ExecuteCommandAndReturnOutput(ctx, "az", []string{
		"mysql", "flexible-server", "firewall-rule", "delete",
		"--resource-group", resourceGroup,
		"--name", serverName,
		"--rule-name", ruleName,
		"--yes",
		"--output", "none",
	}, nil)
	return err
}
