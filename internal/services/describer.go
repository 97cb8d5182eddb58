package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/logger"
	"github.com/celestiaorg/ec2api/internal/retry"
)

// Describer describes freshly launched instances, retrying until EC2 returns them
type Describer struct {
	client compute.EC2API
	opts   DescribeOptions
}

// NewDescriber creates a Describer. Zero options fall back to 5 attempts starting at 1s.
func NewDescriber(client compute.EC2API, opts DescribeOptions) *Describer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = retry.DefaultMaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = retry.DefaultInitialDelay
	}
	return &Describer{client: client, opts: opts}
}

// DescribeInstances calls DescribeInstances until at least one reservation with at least one
// instance comes back. Provider errors are retried except credential errors. After the last
// attempt the last error is returned.
func (d *Describer) DescribeInstances(ctx context.Context, instanceIDs []string) (*ec2.DescribeInstancesOutput, error) {
	var out *ec2.DescribeInstancesOutput
	attempt := 0

	operation := func() error {
		attempt++
		resp, err := d.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs})
		if err != nil {
			err = compute.Classify("DescribeInstances", err)
			if compute.KindOf(err) == compute.KindCredentials {
				return retry.Fatal(err)
			}
			return err
		}
		if !hasInstances(resp) {
			return compute.NewError("DescribeInstances", compute.KindUnexpected,
				fmt.Errorf("%w: %v", ErrInstanceNotDescribable, instanceIDs))
		}
		out = resp
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.DebugWithFields("Instance not yet describable, retrying", logger.Fields{
			"instance_ids": instanceIDs,
			"attempt":      attempt,
			"next_delay":   next.String(),
			"error":        err.Error(),
		})
	}

	opts := []retry.Option{
		retry.WithMaxAttempts(d.opts.MaxAttempts),
		retry.WithInitialDelay(d.opts.InitialDelay),
		retry.WithNotify(notify),
	}
	if d.opts.Timer != nil {
		opts = append(opts, retry.WithTimer(d.opts.Timer))
	}

	if err := retry.WithExponentialBackoff(ctx, operation, opts...); err != nil {
		return nil, fmt.Errorf("failed to describe instances %v after %d attempts: %w", instanceIDs, attempt, err)
	}
	return out, nil
}

func hasInstances(out *ec2.DescribeInstancesOutput) bool {
	if out == nil {
		return false
	}
	for _, r := range out.Reservations {
		if len(r.Instances) > 0 {
			return true
		}
	}
	return false
}
