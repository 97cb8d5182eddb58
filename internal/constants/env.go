// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvConfigFile points at an optional TOML configuration file
	EnvConfigFile = "EC2API_CONFIG"

	// EnvAPIPort is the port the HTTP server listens on
	EnvAPIPort = "API_PORT"

	// EnvEnableSecurityGroups gates the security group creation branch of instance creation
	EnvEnableSecurityGroups = "ENABLE_SECURITY_GROUPS"

	// EnvDefaultAMI is the image used when a create request omits ami_id
	EnvDefaultAMI = "DEFAULT_AMI_ID"

	// EnvDefaultInstanceType is the instance size class used when a request omits instance_type
	EnvDefaultInstanceType = "DEFAULT_INSTANCE_TYPE"

	// EnvKeyDir is the directory new private keys are written to
	EnvKeyDir = "KEY_DIR"

	// EnvDescribeMaxAttempts bounds the retrying describer
	EnvDescribeMaxAttempts = "DESCRIBE_MAX_ATTEMPTS"

	// EnvDescribeInitialDelay is the first backoff delay of the retrying describer
	EnvDescribeInitialDelay = "DESCRIBE_INITIAL_DELAY"

	// EnvWaiterMaxWait bounds the running/terminated waiters
	EnvWaiterMaxWait = "WAITER_MAX_WAIT"

	// EnvAttachConcurrency is the number of security group attachments issued at once
	EnvAttachConcurrency = "ATTACH_CONCURRENCY"

	// EnvAWSProfile is the profile used when a request carries no profile header
	EnvAWSProfile = "AWS_DEFAULT_PROFILE"

	// EnvAWSRegion is the region used when a request carries no region header
	EnvAWSRegion = "AWS_DEFAULT_REGION"

	// EnvAWSEndpoint overrides the EC2 endpoint, e.g. for LocalStack
	EnvAWSEndpoint = "AWS_ENDPOINT_URL"

	// EnvAWSAccessKeyID and EnvAWSSecretAccessKey pin static credentials instead of the default chain
	EnvAWSAccessKeyID     = "EC2API_ACCESS_KEY_ID"
	EnvAWSSecretAccessKey = "EC2API_SECRET_ACCESS_KEY"

	// EnvLogLevel and EnvLogFormat configure the process logger
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Request headers selecting the provider client
const (
	HeaderProfile   = "profile"
	HeaderRegion    = "region"
	HeaderRequestID = "X-Request-ID"
)
