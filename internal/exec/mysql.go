package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// MySQLConn describes a MySQL endpoint reachable on the local machine,
// typically through an SSH tunnel.
type MySQLConn struct {
	Host     string
	Port     int
	User     string
	Password string
	// ServerName is the real server FQDN, recorded in dump headers when the
	// connection goes through a tunnel.
	ServerName string
}

func (c MySQLConn) baseArgs() []string {
	return []string{
		"-h", c.Host,
		"-P", strconv.Itoa(c.Port),
		"-u", c.User,
	}
}

// env returns the process environment with the password passed via
// MYSQL_PWD so it never appears in the process list.
func (c MySQLConn) env() []string {
	return []string{"MYSQL_PWD=" + c.Password}
}

// RunMySQLShell opens an interactive mysql session.
func RunMySQLShell(ctx context.Context, conn MySQLConn, database string) error {
	args := conn.baseArgs()
	if database != "" {
		args = append(args, database)
	}
	return ExecuteCommandInteractive(ctx, "mysql", args, conn.env())
}

// ExecuteSQL runs a statement non-interactively and returns its raw output.
func ExecuteSQL(ctx context.Context, conn MySQLConn, database string, statement string) (string, error) {
	args := append(conn.baseArgs(), "-N", "-e", statement)
	if database != "" {
		args = append(args, database)
	}
	return ExecuteCommandAndReturnOutput(ctx, "mysql", args, conn.env())
}

// ListDatabases returns the database names visible to the connection,
// minus the engine's system schemas.
func ListDatabases(ctx context.Context, conn MySQLConn) ([]string, error) {
	output, err := ExecuteSQL(ctx, conn, "", "SHOW DATABASES;")
	if err != nil {
		return nil, err
	}

	system := map[string]struct{}{
		"information_schema": {},
		"performance_schema": {},
		"mysql":              {},
		"sys":                {},
	}

	var databases []string
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if _, ok := system[name]; ok {
			continue
		}
		databases = append(databases, name)
	}
	return databases, nil
}

// DumpDatabase runs mysqldump against the connection and writes the result
// to outputDir. The dump includes routines and triggers and runs inside a
// single transaction so it is consistent without locking.
//
// When the connection is tunneled, the `-- Host:` header is rewritten to
// name the real server so the dump file is self-describing.
func DumpDatabase(ctx context.Context, conn MySQLConn, database string, outputDir string, ts string) (string, error) {
	args := append(conn.baseArgs(),
		"--single-transaction",
		"--routines",
		"--triggers",
		database,
	)

	output, err := ExecuteCommandAndReturnOutput(ctx, "mysqldump", args, conn.env())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUtils.ErrDumpFailed, err)
	}

	if conn.ServerName != "" {
		output = rewriteDumpHost(output, conn.Host, conn.ServerName)
	}

	filePath := filepath.Join(outputDir, DumpFileName(database, ts))
	if err := os.WriteFile(filePath, []byte(output), 0o600); err != nil {
		// Do not leave a partial dump behind.
		_ = os.Remove(filePath)
		return "", fmt.Errorf("%w: %v", errUtils.ErrDumpFailed, err)
	}

	log.Info("Database dump written", "database", database, "file", filePath)
	return filePath, nil
}

// rewriteDumpHost replaces the tunnel endpoint in the mysqldump header with
// the real server name.
func rewriteDumpHost(dump string, tunnelHost string, serverName string) string {
	old := fmt.Sprintf("-- Host: %s", tunnelHost)
	replacement := fmt.Sprintf("-- Host: %s    (via SSH tunnel from %s)", serverName, tunnelHost)
	return strings.Replace(dump, old, replacement, 1)
}

// SeedMockData creates a mock_data table in the database and fills it with
// the requested number of rows. Used to exercise a fresh server end to end.
func SeedMockData(ctx context.Context, conn MySQLConn, database string, rows int) error {
	var sb bytes.Buffer
	sb.WriteString("CREATE TABLE IF NOT EXISTS mock_data (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(255) NOT NULL, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&sb, " INSERT INTO mock_data (name) VALUES ('Name_%d');", i)
	}

	if _, err := ExecuteSQL(ctx, conn, database, sb.String()); err != nil {
		return err
	}

	log.Info("Mock data seeded", "database", database, "rows", rows)
	return nil
}

// DumpFileName reports the file name a dump for the given database would
// use at the given timestamp.
func DumpFileName(database string, ts string) string {
	return fmt.Sprintf("%s_dump_%s.sql", database, ts)
}
