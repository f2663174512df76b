package cmd

import (
	"context"

	e "github.com/nimbusdfir/nimbus/internal/exec"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// azurePrereqs verifies the Azure CLI is installed and logged in.
func azurePrereqs(ctx context.Context) error {
	if err := e.CheckCLIInstalled("az"); err != nil {
		return err
	}
	return e.CheckAzLoggedIn(ctx)
}

// mysqlPrereqs verifies the database client tools are installed.
func mysqlPrereqs(needDump bool) error {
	if err := e.CheckCLIInstalled("mysql"); err != nil {
		return err
	}
	if needDump {
		return e.CheckCLIInstalled("mysqldump")
	}
	return nil
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// outputDir resolves the configured output directory, defaulting to the
// user's Downloads directory.
func outputDir() string {
	dir := Config().Output.Directory
	if dir == "" {
		return u.DownloadsDir()
	}
	return u.ExpandPath(dir)
}
