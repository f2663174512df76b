package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/spf13/cobra"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

var rdsInstanceIDFlag string

var awsRDSCmd = &cobra.Command{
	Use:   "rds",
	Short: "Manage RDS database instances",
	Long:  `This command manages RDS instances and connects to, dumps, and seeds their databases with the engine's native client tools (mysql/psql, mysqldump/pg_dump)`,
}

func rdsClient(cmd *cobra.Command) (*rds.Client, error) {
	cfg, err := awsres.LoadConfig(cmd.Context(), awsRegion())
	if err != nil {
		return nil, err
	}
	return rds.NewFromConfig(cfg), nil
}

// selectDBInstance resolves the target instance from --instance-id or a
// prompt.
func selectDBInstance(ctx context.Context, client awsres.RDSAPI) (*awsres.DBInstance, error) {
	if rdsInstanceIDFlag != "" {
		return awsres.GetDBInstance(ctx, client, rdsInstanceIDFlag)
	}

	instances, err := awsres.ListDBInstances(ctx, client)
	if err != nil {
		return nil, err
	}
	options := make([]string, 0, len(instances))
	for _, db := range instances {
		options = append(options, fmt.Sprintf("%s (%s %s, %s)", db.ID, db.Engine, db.EngineVersion, db.Status))
	}
	idx, err := promptSelect("Select an RDS instance", options)
	if err != nil {
		return nil, err
	}
	return &instances[idx], nil
}

var awsRDSListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RDS instances",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rdsClient(cmd)
		checkExecErr(err)

		instances, err := awsres.ListDBInstances(cmd.Context(), client)
		checkExecErr(err)

		rows := make([][]string, 0, len(instances))
		for _, db := range instances {
			rows = append(rows, []string{db.ID, db.Engine, db.EngineVersion, db.InstanceClass, db.Status, db.Endpoint})
		}
		printTable([]string{"INSTANCE", "ENGINE", "VERSION", "CLASS", "STATUS", "ENDPOINT"}, rows)
	},
}

var awsRDSDescribeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show one RDS instance as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(cmd.Context(), client)
		checkExecErr(err)
		checkExecErr(u.PrintAsJSON(db))
	},
}

var awsRDSStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a stopped RDS instance",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(cmd.Context(), client)
		checkExecErr(err)
		checkExecErr(awsres.StartDBInstance(cmd.Context(), client, db.ID))
		printSuccess("RDS instance %s starting", db.ID)
	},
}

var awsRDSStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running RDS instance",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(cmd.Context(), client)
		checkExecErr(err)

		checkExecErr(confirmOrAbort(fmt.Sprintf("Stop RDS instance %s?", db.ID)))
		checkExecErr(awsres.StopDBInstance(cmd.Context(), client, db.ID))
		printSuccess("RDS instance %s stopping", db.ID)
	},
}

// rdsCredentials prompts for database credentials, defaulting the user to
// the instance's master username.
func rdsCredentials(db *awsres.DBInstance) (string, string, error) {
	user, err := promptInput("Database user", db.MasterUsername)
	if err != nil {
		return "", "", err
	}
	if user == "" {
		return "", "", errUtils.ErrUsernameRequired
	}
	password, err := promptPassword("Database password")
	if err != nil {
		return "", "", err
	}
	return user, password, nil
}

// rdsEndpointCheck rejects instances without a reachable endpoint, which
// happens while they are stopped or still creating.
func rdsEndpointCheck(db *awsres.DBInstance) error {
	if db.Endpoint == "" || db.Port == 0 {
		return fmt.Errorf("%w: instance %s has no endpoint (status %s)", errUtils.ErrServerNotReady, db.ID, db.Status)
	}
	return nil
}

var awsRDSConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an interactive session to an RDS database",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(ctx, client)
		checkExecErr(err)
		checkExecErr(rdsEndpointCheck(db))

		tool, err := db.ClientTool()
		checkExecErr(err)
		checkExecErr(e.CheckCLIInstalled(tool))

		user, password, err := rdsCredentials(db)
		checkExecErr(err)

		passwordEnv, err := db.PasswordEnv()
		checkExecErr(err)
		env := []string{passwordEnv + "=" + password}

		var cliArgs []string
		if db.IsPostgresFamily() {
			cliArgs = []string{"-h", db.Endpoint, "-p", strconv.Itoa(int(db.Port)), "-U", user}
			if db.DBName != "" {
				cliArgs = append(cliArgs, "-d", db.DBName)
			}
		} else {
			cliArgs = []string{"-h", db.Endpoint, "-P", strconv.Itoa(int(db.Port)), "-u", user}
			if db.DBName != "" {
				cliArgs = append(cliArgs, db.DBName)
			}
		}

		checkExecErr(e.ExecuteCommandInteractive(ctx, tool, cliArgs, env))
	},
}

var rdsDatabaseFlag string

var awsRDSDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump an RDS database with the engine's dump tool",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(ctx, client)
		checkExecErr(err)
		checkExecErr(rdsEndpointCheck(db))

		tool, err := db.DumpTool()
		checkExecErr(err)
		checkExecErr(e.CheckCLIInstalled(tool))

		user, password, err := rdsCredentials(db)
		checkExecErr(err)

		database := rdsDatabaseFlag
		if database == "" {
			database, err = promptInput("Database name", db.DBName)
			checkExecErr(err)
			if database == "" {
				checkExecErr(errUtils.ErrNameRequired)
			}
		}

		if db.IsMySQLFamily() {
			conn := e.MySQLConn{
				Host:     db.Endpoint,
				Port:     int(db.Port),
				User:     user,
				Password: password,
			}
			path, err := e.DumpDatabase(ctx, conn, database, outputDir(), u.Timestamp(time.Now()))
			checkExecErr(err)
			printSuccess("Dump written to %s", path)
			return
		}

		// Postgres path: pg_dump writes the file itself.
		dest := fmt.Sprintf("%s/%s", outputDir(), e.DumpFileName(database, u.Timestamp(time.Now())))
		dumpArgs := []string{
			"-h", db.Endpoint,
			"-p", strconv.Itoa(int(db.Port)),
			"-U", user,
			"-f", dest,
			database,
		}
		checkExecErr(e.ExecuteCommandInteractive(ctx, tool, dumpArgs, []string{"PGPASSWORD=" + password}))
		printSuccess("Dump written to %s", dest)
	},
}

var rdsRowsFlag int

var awsRDSSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert mock data into an RDS database",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := rdsClient(cmd)
		checkExecErr(err)

		db, err := selectDBInstance(ctx, client)
		checkExecErr(err)
		checkExecErr(rdsEndpointCheck(db))

		tool, err := db.ClientTool()
		checkExecErr(err)
		checkExecErr(e.CheckCLIInstalled(tool))

		user, password, err := rdsCredentials(db)
		checkExecErr(err)

		database := rdsDatabaseFlag
		if database == "" {
			database, err = promptInput("Database name", db.DBName)
			checkExecErr(err)
			if database == "" {
				checkExecErr(errUtils.ErrNameRequired)
			}
		}

		if db.IsMySQLFamily() {
			conn := e.MySQLConn{
				Host:     db.Endpoint,
				Port:     int(db.Port),
				User:     user,
				Password: password,
			}
			checkExecErr(e.SeedMockData(ctx, conn, database, rdsRowsFlag))
		} else {
			statement := "CREATE TABLE IF NOT EXISTS mock_data (id SERIAL PRIMARY KEY, name VARCHAR(255) NOT NULL, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);"
			for i := 1; i <= rdsRowsFlag; i++ {
				statement += fmt.Sprintf(" INSERT INTO mock_data (name) VALUES ('Name_%d');", i)
			}
			seedArgs := []string{
				"-h", db.Endpoint,
				"-p", strconv.Itoa(int(db.Port)),
				"-U", user,
				"-d", database,
				"-c", statement,
			}
			_, err = e.ExecuteCommandAndReturnOutput(ctx, tool, seedArgs, []string{"PGPASSWORD=" + password})
			checkExecErr(err)
		}

		printSuccess("Inserted %d row(s) into %s.mock_data", rdsRowsFlag, database)
	},
}

func init() {
	awsRDSCmd.PersistentFlags().StringVar(&rdsInstanceIDFlag, "instance-id", "", "RDS instance identifier (prompted when omitted)")
	awsRDSDumpCmd.Flags().StringVar(&rdsDatabaseFlag, "database", "", "Database name")
	awsRDSSeedCmd.Flags().StringVar(&rdsDatabaseFlag, "database", "", "Database name")
	awsRDSSeedCmd.Flags().IntVar(&rdsRowsFlag, "rows", 10, "Number of mock rows to insert")

	awsRDSCmd.AddCommand(awsRDSListCmd)
	awsRDSCmd.AddCommand(awsRDSDescribeCmd)
	awsRDSCmd.AddCommand(awsRDSStartCmd)
	awsRDSCmd.AddCommand(awsRDSStopCmd)
	awsRDSCmd.AddCommand(awsRDSConnectCmd)
	awsRDSCmd.AddCommand(awsRDSDumpCmd)
	awsRDSCmd.AddCommand(awsRDSSeedCmd)
	awsCmd.AddCommand(awsRDSCmd)
}
