package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	"github.com/nimbusdfir/nimbus/pkg/azure"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

var azureMySQLCmd = &cobra.Command{
	Use:   "mysql",
	Short: "Work with Azure Database for MySQL flexible servers",
	Long:  `This command connects to, dumps, and seeds MySQL flexible servers. Network-isolated servers are reached through a transient jump-server VM and an SSH tunnel, torn down when the session ends`,
}

// mysqlSession is an established path to a MySQL server, direct or
// tunneled. close undoes everything the connect step created, in reverse
// dependency order, suppressing individual failures.
type mysqlSession struct {
	conn     e.MySQLConn
	server   *azure.MySQLServer
	tunnel   *e.Tunnel
	ruleName string
	js       *e.JumpServer
}

func (s *mysqlSession) close(ctx context.Context) {
	if s.ruleName != "" {
		if err := azure.DeleteFirewallRule(ctx, s.server.ResourceGroup, s.server.Name, s.ruleName); err != nil {
			log.Warn("Failed to remove firewall rule", "rule", s.ruleName, "error", err)
		}
	}
	if s.tunnel != nil {
		s.tunnel.Close()
	}
	if s.js != nil {
		e.TeardownJumpServer(ctx, s.js)
	}
}

// selectMySQLServer resolves the target server from an argument or an
// interactive list.
func selectMySQLServer(ctx context.Context, nameArg string) (*azure.MySQLServer, error) {
	servers, err := azure.ListMySQLServers(ctx)
	if err != nil {
		return nil, err
	}

	if nameArg != "" {
		for i := range servers {
			if servers[i].Name == nameArg {
				return &servers[i], nil
			}
		}
		return nil, fmt.Errorf("%w: MySQL server %s", errUtils.ErrNotFound, nameArg)
	}

	options := make([]string, 0, len(servers))
	for _, s := range servers {
		options = append(options, fmt.Sprintf("%s (%s, %s)", s.Name, s.ResourceGroup, s.State))
	}
	idx, err := promptSelect("Select a MySQL server", options)
	if err != nil {
		return nil, err
	}
	return &servers[idx], nil
}

// connectMySQL establishes a path to the server. Publicly reachable
// servers are dialed directly; private ones get a jump server, a firewall
// rule for its IP, and an SSH tunnel.
func connectMySQL(ctx context.Context, server *azure.MySQLServer, user string, password string) (*mysqlSession, error) {
	rules, err := azure.ListFirewallRules(ctx, server.ResourceGroup, server.Name)
	if err != nil {
		return nil, err
	}

	if azure.IsPubliclyAccessible(server, rules) {
		log.Info("Server is publicly accessible, connecting directly", "server", server.Name)
		return &mysqlSession{
			server: server,
			conn: e.MySQLConn{
				Host:     server.FQDN,
				Port:     Config().Tunnel.RemotePort,
				User:     user,
				Password: password,
			},
		}, nil
	}

	log.Info("Server is private, routing through a jump server", "server", server.Name)

	if err := e.CheckCLIInstalled("ssh"); err != nil {
		return nil, err
	}

	session := &mysqlSession{server: server}

	js, err := e.EnsureJumpServer(ctx, Config().Azure, server.ResourceGroup, server.Location)
	if err != nil {
		return nil, err
	}
	session.js = js

	ruleName := azure.JumpServerRuleName()
	if err := azure.AddFirewallRule(ctx, server.ResourceGroup, server.Name, ruleName, js.PublicIP); err != nil {
		session.close(ctx)
		return nil, err
	}
	session.ruleName = ruleName

	tunnel, err := e.OpenTunnel(ctx, e.TunnelSpec{
		SSHKeyPath: u.ExpandPath(Config().Tunnel.SSHKeyPath),
		User:       Config().Azure.JumpServerAdminUser,
		JumpHost:   js.PublicIP,
		RemoteHost: server.FQDN,
		LocalPort:  Config().Tunnel.LocalPort,
		RemotePort: Config().Tunnel.RemotePort,
	})
	if err != nil {
		session.close(ctx)
		return nil, err
	}
	session.tunnel = tunnel

	session.conn = e.MySQLConn{
		Host:       "127.0.0.1",
		Port:       Config().Tunnel.LocalPort,
		User:       user,
		Password:   password,
		ServerName: server.FQDN,
	}
	return session, nil
}

func promptMySQLCredentials() (string, string, error) {
	user, err := promptInput("MySQL admin user", Config().Azure.MySQLAdminUser)
	if err != nil {
		return "", "", err
	}
	if user == "" {
		return "", "", errUtils.ErrUsernameRequired
	}
	password, err := promptPassword("MySQL password")
	if err != nil {
		return "", "", err
	}
	return user, password, nil
}

var azureMySQLConnectCmd = &cobra.Command{
	Use:   "connect [SERVER]",
	Short: "Open an interactive MySQL session",
	Long:  `This command opens an interactive mysql session against a flexible server, building a jump-server tunnel first when the server is not publicly reachable`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))
		checkExecErr(mysqlPrereqs(false))

		server, err := selectMySQLServer(ctx, argOrEmpty(args, 0))
		checkExecErr(err)

		user, password, err := promptMySQLCredentials()
		checkExecErr(err)

		session, err := connectMySQL(ctx, server, user, password)
		checkExecErr(err)
		defer session.close(ctx)

		if err := e.RunMySQLShell(ctx, session.conn, ""); err != nil {
			log.Warn("MySQL session ended with an error", "error", err)
		}
	},
}

var azureMySQLDumpCmd = &cobra.Command{
	Use:   "dump [SERVER] [DB] [OUTDIR]",
	Short: "Dump a database with mysqldump",
	Long:  `This command dumps a database (single transaction, routines, triggers) to <db>_dump_<timestamp>.sql. An SSH tunnel already open on the local tunnel port is reused; otherwise one is built`,
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))
		checkExecErr(mysqlPrereqs(true))

		server, err := selectMySQLServer(ctx, argOrEmpty(args, 0))
		checkExecErr(err)

		user, password, err := promptMySQLCredentials()
		checkExecErr(err)

		dir := argOrEmpty(args, 2)
		if dir == "" {
			dir = outputDir()
		} else {
			dir = u.ExpandPath(dir)
		}

		var conn e.MySQLConn
		if e.ProbeLocalPort(Config().Tunnel.LocalPort) {
			log.Info("Reusing existing tunnel", "local_port", Config().Tunnel.LocalPort)
			conn = e.MySQLConn{
				Host:       "127.0.0.1",
				Port:       Config().Tunnel.LocalPort,
				User:       user,
				Password:   password,
				ServerName: server.FQDN,
			}
		} else {
			session, err := connectMySQL(ctx, server, user, password)
			checkExecErr(err)
			defer session.close(ctx)
			conn = session.conn
		}

		database := argOrEmpty(args, 1)
		if database == "" {
			databases, err := e.ListDatabases(ctx, conn)
			checkExecErr(err)
			if len(databases) == 0 {
				checkExecErr(fmt.Errorf("%w: no user databases on %s", errUtils.ErrNoResults, server.Name))
			}
			idx, err := promptSelect("Select a database to dump", databases)
			checkExecErr(err)
			database = databases[idx]
		}

		path, err := e.DumpDatabase(ctx, conn, database, dir, u.Timestamp(time.Now()))
		checkExecErr(err)
		printSuccess("Dump written to %s", path)
	},
}

var azureMySQLDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage databases over an existing tunnel",
	Long:  `This command lists, creates, and deletes databases through a tunnel already open on the local tunnel port (open one with 'nimbus azure mysql connect')`,
}

// tunnelConn requires an already-open tunnel and builds a connection
// through it.
func tunnelConn() (e.MySQLConn, error) {
	port := Config().Tunnel.LocalPort
	if !e.ProbeLocalPort(port) {
		return e.MySQLConn{}, fmt.Errorf("%w: nothing is listening on 127.0.0.1:%d", errUtils.ErrNoTunnel, port)
	}

	user, password, err := promptMySQLCredentials()
	if err != nil {
		return e.MySQLConn{}, err
	}
	return e.MySQLConn{Host: "127.0.0.1", Port: port, User: user, Password: password}, nil
}

var azureMySQLDBListCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases",
	Run: func(cmd *cobra.Command, args []string) {
		checkExecErr(mysqlPrereqs(false))

		conn, err := tunnelConn()
		checkExecErr(err)

		databases, err := e.ListDatabases(cmd.Context(), conn)
		checkExecErr(err)

		rows := make([][]string, 0, len(databases))
		for _, db := range databases {
			rows = append(rows, []string{db})
		}
		printTable([]string{"DATABASE"}, rows)
	},
}

var azureMySQLDBCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkExecErr(mysqlPrereqs(false))

		name := argOrEmpty(args, 0)
		if name == "" {
			var err error
			name, err = promptInput("Database name", "")
			checkExecErr(err)
			if name == "" {
				checkExecErr(errUtils.ErrNameRequired)
			}
		}

		conn, err := tunnelConn()
		checkExecErr(err)

		_, err = e.ExecuteSQL(cmd.Context(), conn, "", fmt.Sprintf("CREATE DATABASE `%s`;", name))
		checkExecErr(err)
		printSuccess("Database %s created", name)
	},
}

var azureMySQLDBDeleteCmd = &cobra.Command{
	Use:   "delete [NAME]",
	Short: "Delete a database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkExecErr(mysqlPrereqs(false))

		conn, err := tunnelConn()
		checkExecErr(err)

		name := argOrEmpty(args, 0)
		if name == "" {
			databases, err := e.ListDatabases(cmd.Context(), conn)
			checkExecErr(err)
			idx, err := promptSelect("Select a database to delete", databases)
			checkExecErr(err)
			name = databases[idx]
		}

		checkExecErr(confirmOrAbort(fmt.Sprintf("Drop database %s and all of its data?", name)))

		_, err = e.ExecuteSQL(cmd.Context(), conn, "", fmt.Sprintf("DROP DATABASE `%s`;", name))
		checkExecErr(err)
		printSuccess("Database %s deleted", name)
	},
}

var azureMySQLSeedCmd = &cobra.Command{
	Use:   "seed [SERVER]",
	Short: "Insert mock data into a database",
	Long:  `This command creates a mock_data table in the chosen database and inserts generated rows, useful for exercising a fresh server end to end`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		checkExecErr(azurePrereqs(ctx))
		checkExecErr(mysqlPrereqs(false))

		server, err := selectMySQLServer(ctx, argOrEmpty(args, 0))
		checkExecErr(err)

		user, password, err := promptMySQLCredentials()
		checkExecErr(err)

		session, err := connectMySQL(ctx, server, user, password)
		checkExecErr(err)
		defer session.close(ctx)

		databases, err := e.ListDatabases(ctx, session.conn)
		checkExecErr(err)
		if len(databases) == 0 {
			checkExecErr(fmt.Errorf("%w: no user databases on %s", errUtils.ErrNoResults, server.Name))
		}
		idx, err := promptSelect("Select a database to seed", databases)
		checkExecErr(err)

		rowsStr, err := promptInput("Number of rows", "10")
		checkExecErr(err)
		rows, err := strconv.Atoi(rowsStr)
		if err != nil || rows <= 0 {
			checkExecErr(fmt.Errorf("%w: row count must be a positive integer", errUtils.ErrInvalidSelection))
		}

		checkExecErr(e.SeedMockData(ctx, session.conn, databases[idx], rows))
		printSuccess("Inserted %d row(s) into %s.mock_data", rows, databases[idx])
	},
}

func init() {
	azureMySQLDBCmd.AddCommand(azureMySQLDBListCmd)
	azureMySQLDBCmd.AddCommand(azureMySQLDBCreateCmd)
	azureMySQLDBCmd.AddCommand(azureMySQLDBDeleteCmd)

	azureMySQLCmd.AddCommand(azureMySQLConnectCmd)
	azureMySQLCmd.AddCommand(azureMySQLDumpCmd)
	azureMySQLCmd.AddCommand(azureMySQLDBCmd)
	azureMySQLCmd.AddCommand(azureMySQLSeedCmd)
	azureCmd.AddCommand(azureMySQLCmd)
}
