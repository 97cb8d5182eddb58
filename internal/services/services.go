// Package services implements the instance workflows on top of the EC2 API
package services

import (
	"errors"
	"time"

	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/internal/retry"
)

var (
	// ErrInvalidRequest is returned when a create or terminate request fails validation
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSecurityGroupNotFound is returned when ingress is authorized against a group that does not exist
	ErrSecurityGroupNotFound = errors.New("security group not found")
	// ErrInstanceNotDescribable is returned when an instance never shows up in DescribeInstances
	ErrInstanceNotDescribable = errors.New("instance not describable")
	// ErrNoInstancesLaunched is returned when RunInstances succeeds without returning instances
	ErrNoInstancesLaunched = errors.New("no instances launched")
)

// DescribeOptions configures the Describer backoff
type DescribeOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// Timer overrides the wall clock between attempts
	Timer retry.Timer
}

// WaiterOptions bounds the SDK running/terminated waiters
type WaiterOptions struct {
	MaxWait  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Options configures the instance workflows
type Options struct {
	EnableSecurityGroups bool
	DefaultAMI           string
	DefaultInstanceType  string
	KeyDir               string
	AttachConcurrency    int

	Describe DescribeOptions
	Waiter   WaiterOptions
}

// Default waiter polling bounds, the SDK defaults for the instance waiters
const (
	DefaultWaiterMinDelay = 15 * time.Second
	DefaultWaiterMaxDelay = 120 * time.Second
)

// OptionsFromConfig maps the service configuration onto workflow options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		EnableSecurityGroups: cfg.EnableSecurityGroups,
		DefaultAMI:           cfg.Instances.DefaultAMI,
		DefaultInstanceType:  cfg.Instances.DefaultInstanceType,
		KeyDir:               cfg.Instances.KeyDir,
		AttachConcurrency:    cfg.Instances.AttachConcurrency,
		Describe: DescribeOptions{
			MaxAttempts:  cfg.Instances.DescribeMaxAttempts,
			InitialDelay: cfg.Instances.DescribeInitialDelay,
		},
		Waiter: WaiterOptions{
			MaxWait:  cfg.Instances.WaiterMaxWait,
			MinDelay: DefaultWaiterMinDelay,
			MaxDelay: DefaultWaiterMaxDelay,
		},
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultAMI == "" {
		o.DefaultAMI = config.DefaultAMI
	}
	if o.DefaultInstanceType == "" {
		o.DefaultInstanceType = config.DefaultInstanceType
	}
	if o.AttachConcurrency < 1 {
		o.AttachConcurrency = 1
	}
	if o.Describe.MaxAttempts < 1 {
		o.Describe.MaxAttempts = retry.DefaultMaxAttempts
	}
	if o.Describe.InitialDelay <= 0 {
		o.Describe.InitialDelay = retry.DefaultInitialDelay
	}
	if o.Waiter.MaxWait <= 0 {
		o.Waiter.MaxWait = config.DefaultWaiterMaxWait
	}
	if o.Waiter.MinDelay <= 0 {
		o.Waiter.MinDelay = DefaultWaiterMinDelay
	}
	if o.Waiter.MaxDelay < o.Waiter.MinDelay {
		o.Waiter.MaxDelay = o.Waiter.MinDelay
	}
	return o
}
