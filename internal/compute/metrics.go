package compute

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ec2CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ec2api",
			Subsystem: "ec2",
			Name:      "api_calls_total",
			Help:      "Total number of EC2 API calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	ec2CallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ec2api",
			Subsystem: "ec2",
			Name:      "api_call_duration_seconds",
			Help:      "Latency of EC2 API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(ec2CallsTotal, ec2CallDuration)
}

// resultLabel is "success" or the error kind
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return kindFromError(err).String()
}

func observe(operation string, start time.Time, err error) {
	ec2CallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	ec2CallsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// InstrumentedClient records a counter and a latency sample for every EC2 call
type InstrumentedClient struct {
	next EC2API
}

var _ EC2API = (*InstrumentedClient)(nil)

// NewInstrumentedClient wraps next with call metrics
func NewInstrumentedClient(next EC2API) *InstrumentedClient {
	return &InstrumentedClient{next: next}
}

// RunInstances implements EC2API
func (c *InstrumentedClient) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (out *ec2.RunInstancesOutput, err error) {
	defer func(start time.Time) { observe("RunInstances", start, err) }(time.Now())
	return c.next.RunInstances(ctx, params, optFns...)
}

// TerminateInstances implements EC2API
func (c *InstrumentedClient) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (out *ec2.TerminateInstancesOutput, err error) {
	defer func(start time.Time) { observe("TerminateInstances", start, err) }(time.Now())
	return c.next.TerminateInstances(ctx, params, optFns...)
}

// DescribeInstances implements EC2API. The SDK waiters poll through this method too.
func (c *InstrumentedClient) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (out *ec2.DescribeInstancesOutput, err error) {
	defer func(start time.Time) { observe("DescribeInstances", start, err) }(time.Now())
	return c.next.DescribeInstances(ctx, params, optFns...)
}

// DescribeKeyPairs implements EC2API
func (c *InstrumentedClient) DescribeKeyPairs(ctx context.Context, params *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (out *ec2.DescribeKeyPairsOutput, err error) {
	defer func(start time.Time) { observe("DescribeKeyPairs", start, err) }(time.Now())
	return c.next.DescribeKeyPairs(ctx, params, optFns...)
}

// CreateKeyPair implements EC2API
func (c *InstrumentedClient) CreateKeyPair(ctx context.Context, params *ec2.CreateKeyPairInput, optFns ...func(*ec2.Options)) (out *ec2.CreateKeyPairOutput, err error) {
	defer func(start time.Time) { observe("CreateKeyPair", start, err) }(time.Now())
	return c.next.CreateKeyPair(ctx, params, optFns...)
}

// DescribeSecurityGroups implements EC2API
func (c *InstrumentedClient) DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (out *ec2.DescribeSecurityGroupsOutput, err error) {
	defer func(start time.Time) { observe("DescribeSecurityGroups", start, err) }(time.Now())
	return c.next.DescribeSecurityGroups(ctx, params, optFns...)
}

// CreateSecurityGroup implements EC2API
func (c *InstrumentedClient) CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (out *ec2.CreateSecurityGroupOutput, err error) {
	defer func(start time.Time) { observe("CreateSecurityGroup", start, err) }(time.Now())
	return c.next.CreateSecurityGroup(ctx, params, optFns...)
}

// AuthorizeSecurityGroupIngress implements EC2API
func (c *InstrumentedClient) AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (out *ec2.AuthorizeSecurityGroupIngressOutput, err error) {
	defer func(start time.Time) { observe("AuthorizeSecurityGroupIngress", start, err) }(time.Now())
	return c.next.AuthorizeSecurityGroupIngress(ctx, params, optFns...)
}

// ModifyInstanceAttribute implements EC2API
func (c *InstrumentedClient) ModifyInstanceAttribute(ctx context.Context, params *ec2.ModifyInstanceAttributeInput, optFns ...func(*ec2.Options)) (out *ec2.ModifyInstanceAttributeOutput, err error) {
	defer func(start time.Time) { observe("ModifyInstanceAttribute", start, err) }(time.Now())
	return c.next.ModifyInstanceAttribute(ctx, params, optFns...)
}
