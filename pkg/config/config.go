package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/nimbusdfir/nimbus/pkg/schema"
)

const (
	// CliConfigFileName is the file name of the CLI configuration.
	CliConfigFileName = "nimbus.yaml"

	// SystemDirConfigFilePath is the system directory checked on Unix.
	SystemDirConfigFilePath = "/usr/local/etc/nimbus"

	windowsAppDataEnvVar = "LOCALAPPDATA"
)

// InitCliConfig finds and merges CLI configurations in the following order:
// system dir, home dir, current dir, ENV vars. Missing files are not an
// error; defaults apply when nothing is found.
func InitCliConfig() (*schema.NimbusConfiguration, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetTypeByDefaultValue(true)

	setDefaults(v)

	// 1. System directory (optional).
	configFilePathSystem := SystemDirConfigFilePath
	if runtime.GOOS == "windows" {
		configFilePathSystem = os.Getenv(windowsAppDataEnvVar)
	}
	if configFilePathSystem != "" {
		if err := mergeConfigFile(v, filepath.Join(configFilePathSystem, CliConfigFileName)); err != nil {
			return nil, err
		}
	}

	// 2. User configuration: XDG_CONFIG_HOME if defined, otherwise ~/.config/nimbus.
	userConfigDir := ""
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		userConfigDir = filepath.Join(xdgConfigHome, "nimbus")
	} else {
		homeDir, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		userConfigDir = filepath.Join(homeDir, ".config", "nimbus")
	}
	if err := mergeConfigFile(v, filepath.Join(userConfigDir, CliConfigFileName)); err != nil {
		return nil, err
	}

	// 3. Current directory.
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, filepath.Join(cwd, CliConfigFileName)); err != nil {
		return nil, err
	}

	// 4. ENV vars (NIMBUS_LOGS_LEVEL, NIMBUS_TUNNEL_LOCAL_PORT, ...).
	v.SetEnvPrefix("NIMBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg schema.NimbusConfiguration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CLI configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logs.level", "Info")
	v.SetDefault("logs.file", "/dev/stderr")

	v.SetDefault("tunnel.local_port", 3307)
	v.SetDefault("tunnel.remote_port", 3306)
	v.SetDefault("tunnel.ssh_key_path", "~/.ssh/id_rsa")

	v.SetDefault("azure.jumpserver_image", "Ubuntu2204")
	v.SetDefault("azure.jumpserver_size", "Standard_B1s")
	v.SetDefault("azure.jumpserver_admin_user", "azureuser")
	v.SetDefault("azure.default_resource_group", "rg-forensics")
	v.SetDefault("azure.default_location", "northcentralus")
	v.SetDefault("azure.mysql_admin_user", "mysqladmin")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.quarantine_sg_name", "ec2-quarantine-sg")
	v.SetDefault("aws.default_instance_type", "t3.micro")

	v.SetDefault("output.directory", "")

	v.SetDefault("retry.max_attempts", 60)
	v.SetDefault("retry.backoff_strategy", string(schema.BackoffConstant))
	v.SetDefault("retry.initial_delay", 1*time.Second)
	v.SetDefault("retry.max_delay", 1*time.Second)
	v.SetDefault("retry.random_jitter", false)
	v.SetDefault("retry.multiplier", 1.0)
	v.SetDefault("retry.max_elapsed_time", 5*time.Minute)
}

func mergeConfigFile(v *viper.Viper, path string) error {
	reader, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer reader.Close()

	return v.MergeConfig(reader)
}
