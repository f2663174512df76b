package cmd

import (
	"context"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	cfg "github.com/nimbusdfir/nimbus/pkg/config"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	"github.com/nimbusdfir/nimbus/pkg/schema"
)

var cliConfig *schema.NimbusConfiguration

// skipConfirm is bound to the persistent --yes flag; destructive commands
// consult it before prompting.
var skipConfirm bool

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "nimbus",
	Short: "Cloud resource management and forensic evidence collection",
	Long: `Nimbus manages Azure, AWS, and GCP resources from one CLI and collects
forensic evidence (instance isolation, EBS snapshots, bucket metadata) the
way an incident responder needs it: repeatable, logged, and reversible.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Determine if the command is a help command or if the help flag is set
		isHelpRequested := cmd.Name() == "help" || cmd.Flags().Changed("help")

		if isHelpRequested {
			cmd.SilenceUsage = false
			cmd.SilenceErrors = false
		} else {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
		}
	},
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func ExecuteContext(ctx context.Context) error {
	cc.Init(&cc.Config{
		RootCmd:  RootCmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiGreen + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})

	var err error
	cliConfig, err = cfg.InitCliConfig()
	if err != nil {
		return err
	}

	if flagLevel, flagErr := RootCmd.PersistentFlags().GetString("logs-level"); flagErr == nil && RootCmd.PersistentFlags().Changed("logs-level") {
		cliConfig.Logs.Level = flagLevel
	}

	logger, err := log.NewLoggerFromCliConfig(cliConfig)
	if err != nil {
		return err
	}
	log.SetDefault(logger)

	return RootCmd.ExecuteContext(ctx)
}

// Config returns the merged CLI configuration. Commands must only call it
// after Execute has initialized it.
func Config() *schema.NimbusConfiguration {
	return cliConfig
}

// Cleanup tears down any jump server recorded in the state file. It runs
// on SIGINT/SIGTERM and at the end of tunnel-using commands so an aborted
// session never leaks a bastion VM.
func Cleanup(ctx context.Context) {
	js, err := e.LoadState()
	if err != nil {
		log.Warn("Could not read jump server state", "error", err)
		return
	}
	if js == nil {
		return
	}
	e.TeardownJumpServer(ctx, js)
}

func init() {
	RootCmd.PersistentFlags().String("logs-level", "Info", "Logs level. Supported log levels are Trace, Debug, Info, Warning, Off. If the log level is set to Off, Nimbus will not log any messages")
	RootCmd.PersistentFlags().String("logs-file", "/dev/stderr", "The file to write Nimbus logs to. Logs can be written to any file or any standard file descriptor, including '/dev/stdout', '/dev/stderr' and '/dev/null'")
	RootCmd.PersistentFlags().BoolVar(&skipConfirm, "yes", false, "Skip interactive confirmation prompts on destructive operations")
}

// checkExecErr prints the error and exits with the wrapped command's exit
// code. No-op on nil.
func checkExecErr(err error) {
	errUtils.CheckErrorPrintAndExit(err)
}
