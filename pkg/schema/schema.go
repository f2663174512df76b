package schema

import "time"

// NimbusConfiguration is the top-level CLI configuration, merged from
// nimbus.yaml files, environment variables, and command-line flags.
type NimbusConfiguration struct {
	Logs   Logs         `yaml:"logs" json:"logs" mapstructure:"logs"`
	Tunnel TunnelConfig `yaml:"tunnel" json:"tunnel" mapstructure:"tunnel"`
	Azure  AzureConfig  `yaml:"azure" json:"azure" mapstructure:"azure"`
	AWS    AWSConfig    `yaml:"aws" json:"aws" mapstructure:"aws"`
	GCP    GCPConfig    `yaml:"gcp" json:"gcp" mapstructure:"gcp"`
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`
	Retry  RetryConfig  `yaml:"retry" json:"retry" mapstructure:"retry"`
}

type Logs struct {
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	File  string `yaml:"file" json:"file" mapstructure:"file"`
}

// TunnelConfig controls the SSH port-forward opened through a jump server
// to reach network-isolated database endpoints.
type TunnelConfig struct {
	LocalPort  int    `yaml:"local_port" json:"local_port" mapstructure:"local_port"`
	RemotePort int    `yaml:"remote_port" json:"remote_port" mapstructure:"remote_port"`
	SSHKeyPath string `yaml:"ssh_key_path" json:"ssh_key_path" mapstructure:"ssh_key_path"`
}

// AzureConfig holds defaults for the Azure commands, including the shape
// of the transient jump-server VM.
type AzureConfig struct {
	JumpServerImage      string `yaml:"jumpserver_image" json:"jumpserver_image" mapstructure:"jumpserver_image"`
	JumpServerSize       string `yaml:"jumpserver_size" json:"jumpserver_size" mapstructure:"jumpserver_size"`
	JumpServerAdminUser  string `yaml:"jumpserver_admin_user" json:"jumpserver_admin_user" mapstructure:"jumpserver_admin_user"`
	DefaultResourceGroup string `yaml:"default_resource_group" json:"default_resource_group" mapstructure:"default_resource_group"`
	DefaultLocation      string `yaml:"default_location" json:"default_location" mapstructure:"default_location"`
	MySQLAdminUser       string `yaml:"mysql_admin_user" json:"mysql_admin_user" mapstructure:"mysql_admin_user"`
}

type AWSConfig struct {
	Region              string `yaml:"region" json:"region" mapstructure:"region"`
	QuarantineSGName    string `yaml:"quarantine_sg_name" json:"quarantine_sg_name" mapstructure:"quarantine_sg_name"`
	DefaultInstanceType string `yaml:"default_instance_type" json:"default_instance_type" mapstructure:"default_instance_type"`
}

type GCPConfig struct {
	Project string `yaml:"project" json:"project" mapstructure:"project"`
}

// OutputConfig controls where dumps, archives, and evidence reports land.
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory" mapstructure:"directory"`
}

// BackoffStrategy selects the delay progression between retry attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig tunes the retry executor. The SSH readiness poll uses a
// constant 1s delay with 60 attempts by default.
type RetryConfig struct {
	MaxAttempts     int             `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`
	BackoffStrategy BackoffStrategy `yaml:"backoff_strategy" json:"backoff_strategy" mapstructure:"backoff_strategy"`
	InitialDelay    time.Duration   `yaml:"initial_delay" json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay        time.Duration   `yaml:"max_delay" json:"max_delay" mapstructure:"max_delay"`
	RandomJitter    bool            `yaml:"random_jitter" json:"random_jitter" mapstructure:"random_jitter"`
	Multiplier      float64         `yaml:"multiplier" json:"multiplier" mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration   `yaml:"max_elapsed_time" json:"max_elapsed_time" mapstructure:"max_elapsed_time"`
}
