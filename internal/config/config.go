// Package config assembles the service configuration from defaults, an optional TOML file and the environment
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	env "github.com/celestiaorg/ec2api/config"
	"github.com/celestiaorg/ec2api/internal/constants"
)

// Default configuration values
const (
	DefaultPort                 = "8080"
	DefaultAMI                  = "ami-02a53b0d62d37a757"
	DefaultInstanceType         = "t2.micro"
	DefaultKeyDir               = "."
	DefaultDescribeMaxAttempts  = 5
	DefaultDescribeInitialDelay = time.Second
	DefaultWaiterMaxWait        = 10 * time.Minute
	DefaultAttachConcurrency    = 1
	DefaultAWSProfile           = "default"
	DefaultAWSRegion            = "us-east-1"
)

// Config is the complete service configuration
type Config struct {
	Port                 string `toml:"port"`
	EnableSecurityGroups bool   `toml:"enable_security_groups"`

	Instances InstanceConfig `toml:"instances"`
	AWS       AWSConfig      `toml:"aws"`
	Log       LogConfig      `toml:"log"`
}

// InstanceConfig holds the orchestration knobs
type InstanceConfig struct {
	DefaultAMI           string        `toml:"default_ami"`
	DefaultInstanceType  string        `toml:"default_instance_type"`
	KeyDir               string        `toml:"key_dir"`
	DescribeMaxAttempts  int           `toml:"describe_max_attempts"`
	DescribeInitialDelay time.Duration `toml:"describe_initial_delay"`
	WaiterMaxWait        time.Duration `toml:"waiter_max_wait"`
	AttachConcurrency    int           `toml:"attach_concurrency"`
}

// AWSConfig holds the defaults used to build per-request EC2 clients
type AWSConfig struct {
	Profile         string `toml:"profile"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:                 DefaultPort,
		EnableSecurityGroups: true,
		Instances: InstanceConfig{
			DefaultAMI:           DefaultAMI,
			DefaultInstanceType:  DefaultInstanceType,
			KeyDir:               DefaultKeyDir,
			DescribeMaxAttempts:  DefaultDescribeMaxAttempts,
			DescribeInitialDelay: DefaultDescribeInitialDelay,
			WaiterMaxWait:        DefaultWaiterMaxWait,
			AttachConcurrency:    DefaultAttachConcurrency,
		},
		AWS: AWSConfig{
			Profile: DefaultAWSProfile,
			Region:  DefaultAWSRegion,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. Precedence: environment > TOML file at path > defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = env.GetEnv(constants.EnvAPIPort, c.Port)
	c.EnableSecurityGroups = env.GetEnvBool(constants.EnvEnableSecurityGroups, c.EnableSecurityGroups)

	c.Instances.DefaultAMI = env.GetEnv(constants.EnvDefaultAMI, c.Instances.DefaultAMI)
	c.Instances.DefaultInstanceType = env.GetEnv(constants.EnvDefaultInstanceType, c.Instances.DefaultInstanceType)
	c.Instances.KeyDir = env.GetEnv(constants.EnvKeyDir, c.Instances.KeyDir)
	c.Instances.DescribeMaxAttempts = env.GetEnvInt(constants.EnvDescribeMaxAttempts, c.Instances.DescribeMaxAttempts)
	c.Instances.DescribeInitialDelay = env.GetEnvDuration(constants.EnvDescribeInitialDelay, c.Instances.DescribeInitialDelay)
	c.Instances.WaiterMaxWait = env.GetEnvDuration(constants.EnvWaiterMaxWait, c.Instances.WaiterMaxWait)
	c.Instances.AttachConcurrency = env.GetEnvInt(constants.EnvAttachConcurrency, c.Instances.AttachConcurrency)

	c.AWS.Profile = env.GetEnv(constants.EnvAWSProfile, c.AWS.Profile)
	c.AWS.Region = env.GetEnv(constants.EnvAWSRegion, c.AWS.Region)
	c.AWS.Endpoint = env.GetEnv(constants.EnvAWSEndpoint, c.AWS.Endpoint)
	c.AWS.AccessKeyID = env.GetEnv(constants.EnvAWSAccessKeyID, c.AWS.AccessKeyID)
	c.AWS.SecretAccessKey = env.GetEnv(constants.EnvAWSSecretAccessKey, c.AWS.SecretAccessKey)

	c.Log.Level = env.GetEnv(constants.EnvLogLevel, c.Log.Level)
	c.Log.Format = env.GetEnv(constants.EnvLogFormat, c.Log.Format)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Instances.DefaultAMI == "" {
		return fmt.Errorf("default AMI is required")
	}
	if c.Instances.DefaultInstanceType == "" {
		return fmt.Errorf("default instance type is required")
	}
	if c.Instances.DescribeMaxAttempts < 1 {
		return fmt.Errorf("describe max attempts must be at least 1, got %d", c.Instances.DescribeMaxAttempts)
	}
	if c.Instances.DescribeInitialDelay < 0 {
		return fmt.Errorf("describe initial delay must not be negative")
	}
	if c.Instances.WaiterMaxWait <= 0 {
		return fmt.Errorf("waiter max wait must be positive")
	}
	if c.Instances.AttachConcurrency < 1 {
		return fmt.Errorf("attach concurrency must be at least 1, got %d", c.Instances.AttachConcurrency)
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return fmt.Errorf("static AWS credentials need both an access key id and a secret access key")
	}
	return nil
}
