package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"golang.org/x/sync/errgroup"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/keystore"
	"github.com/celestiaorg/ec2api/internal/logger"
	"github.com/celestiaorg/ec2api/internal/types"
)

// LaunchConfig is the set of RunInstances parameters an instance request controls
type LaunchConfig struct {
	ImageID      string
	MinCount     int32
	MaxCount     int32
	InstanceType string
	// KeyName is set only when a key pair was requested
	KeyName string
}

// RunInstancesInput converts the launch configuration into the SDK input
func (c LaunchConfig) RunInstancesInput() *ec2.RunInstancesInput {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(c.ImageID),
		MinCount:     aws.Int32(c.MinCount),
		MaxCount:     aws.Int32(c.MaxCount),
		InstanceType: ec2types.InstanceType(c.InstanceType),
	}
	if c.KeyName != "" {
		input.KeyName = aws.String(c.KeyName)
	}
	return input
}

// Instance runs the create and terminate workflows against one EC2 client
type Instance struct {
	client         compute.EC2API
	opts           Options
	describer      *Describer
	keyPairs       *KeyPair
	securityGroups *SecurityGroup
}

// NewInstanceService creates an instance service for client
func NewInstanceService(client compute.EC2API, opts Options) *Instance {
	opts = opts.withDefaults()
	describer := NewDescriber(client, opts.Describe)
	return &Instance{
		client:         client,
		opts:           opts,
		describer:      describer,
		keyPairs:       NewKeyPairService(client, keystore.New(opts.KeyDir)),
		securityGroups: NewSecurityGroupService(client, describer),
	}
}

// PrepareRequest applies the configured defaults to req. When security groups are disabled the
// group part of the request is dropped before validation, so it can neither fail nor take effect.
func (o Options) PrepareRequest(req *types.CreateInstanceRequest) {
	req.ApplyDefaults(o.DefaultAMI, o.DefaultInstanceType)
	if o.EnableSecurityGroups || !req.CreateSecurityGroup {
		return
	}
	logger.WarnWithFields("Security groups are disabled, ignoring security group request", logger.Fields{
		"group_name": req.SecurityGroupName,
	})
	req.CreateSecurityGroup = false
	req.SecurityGroupName = ""
	req.SecurityGroupDescription = ""
	req.SecurityGroupRules = nil
}

// CreateInstance launches the requested instances and returns their ids once all are running.
// The key pair and security group are provisioned first when requested; the group is attached
// to every launched instance before waiting.
func (s *Instance) CreateInstance(ctx context.Context, req types.CreateInstanceRequest) ([]string, error) {
	s.opts.PrepareRequest(&req)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	launch := LaunchConfig{
		ImageID:      req.AMIID,
		MinCount:     req.MinCount,
		MaxCount:     req.MaxCount,
		InstanceType: req.InstanceType,
	}

	var groupID string
	if req.CreateSecurityGroup {
		id, err := s.securityGroups.EnsureSecurityGroup(ctx, req.SecurityGroupName, req.SecurityGroupDescription)
		if err != nil {
			return nil, err
		}
		if len(req.SecurityGroupRules) > 0 {
			if _, err := s.securityGroups.AuthorizeIngress(ctx, id, RulesToPermissions(req.SecurityGroupRules)); err != nil {
				return nil, err
			}
		}
		groupID = id
	}

	if req.CreateKeyPair {
		name, err := s.keyPairs.EnsureKeyPair(ctx, req.KeyName)
		if err != nil {
			return nil, err
		}
		launch.KeyName = name
	}

	logger.InfoWithFields("Launching instances", logger.Fields{
		"ami_id":        launch.ImageID,
		"instance_type": launch.InstanceType,
		"min_count":     launch.MinCount,
		"max_count":     launch.MaxCount,
		"key_name":      launch.KeyName,
	})

	out, err := s.client.RunInstances(ctx, launch.RunInstancesInput())
	if err != nil {
		return nil, fmt.Errorf("failed to launch instances: %w", compute.Classify("RunInstances", err))
	}

	instanceIDs := make([]string, 0, len(out.Instances))
	for _, inst := range out.Instances {
		if id := aws.ToString(inst.InstanceId); id != "" {
			instanceIDs = append(instanceIDs, id)
		}
	}
	if len(instanceIDs) == 0 {
		return nil, compute.NewError("RunInstances", compute.KindUnexpected, ErrNoInstancesLaunched)
	}

	if groupID != "" {
		if err := s.attachAll(ctx, groupID, instanceIDs); err != nil {
			return nil, err
		}
	}

	waiter := ec2.NewInstanceRunningWaiter(s.client, func(o *ec2.InstanceRunningWaiterOptions) {
		o.MinDelay = s.opts.Waiter.MinDelay
		o.MaxDelay = s.opts.Waiter.MaxDelay
	})
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs}, s.opts.Waiter.MaxWait); err != nil {
		return nil, fmt.Errorf("failed waiting for instances to run: %w", compute.Classify("InstanceRunningWaiter", err))
	}

	logger.InfoWithFields("Instances running", logger.Fields{"instance_ids": instanceIDs})
	return instanceIDs, nil
}

// TerminateInstance terminates the instances and returns instanceIDs once all are terminated
func (s *Instance) TerminateInstance(ctx context.Context, instanceIDs []string) ([]string, error) {
	req := types.TerminateInstanceRequest{InstanceIDs: instanceIDs}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	logger.InfoWithFields("Terminating instances", logger.Fields{"instance_ids": instanceIDs})

	if _, err := s.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: instanceIDs}); err != nil {
		return nil, fmt.Errorf("failed to terminate instances: %w", compute.Classify("TerminateInstances", err))
	}

	waiter := ec2.NewInstanceTerminatedWaiter(s.client, func(o *ec2.InstanceTerminatedWaiterOptions) {
		o.MinDelay = s.opts.Waiter.MinDelay
		o.MaxDelay = s.opts.Waiter.MaxDelay
	})
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs}, s.opts.Waiter.MaxWait); err != nil {
		return nil, fmt.Errorf("failed waiting for instances to terminate: %w", compute.Classify("InstanceTerminatedWaiter", err))
	}

	logger.InfoWithFields("Instances terminated", logger.Fields{"instance_ids": instanceIDs})
	return instanceIDs, nil
}

// attachAll attaches groupID to every instance, at most AttachConcurrency at a time.
// The first failure cancels attachments that have not started.
func (s *Instance) attachAll(ctx context.Context, groupID string, instanceIDs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.AttachConcurrency)

	for _, id := range instanceIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.securityGroups.AttachSecurityGroup(gctx, groupID, id)
		})
	}

	return g.Wait()
}
