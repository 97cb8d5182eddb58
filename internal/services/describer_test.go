package services

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/test/mocks"
)

func launchOne(t *testing.T, m *mocks.MockEC2Client) string {
	t.Helper()
	out, err := m.RunInstances(context.Background(), &ec2.RunInstancesInput{
		ImageId:  aws.String(mocks.DefaultAMI),
		MinCount: aws.Int32(1),
		MaxCount: aws.Int32(1),
	})
	require.NoError(t, err)
	return aws.ToString(out.Instances[0].InstanceId)
}

func TestDescriber_SucceedsAfterEmptyResults(t *testing.T) {
	m := mocks.NewMockEC2Client()
	id := launchOne(t, m)
	timer := newRecordingTimer()
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 5, InitialDelay: time.Second, Timer: timer})

	m.DelayDescribe(3)
	out, err := d.DescribeInstances(context.Background(), []string{id})
	require.NoError(t, err)
	require.Len(t, out.Reservations, 1)
	assert.Equal(t, id, aws.ToString(out.Reservations[0].Instances[0].InstanceId))

	assert.Equal(t, 4, m.Calls(mocks.OpDescribeInstances))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, timer.Delays())
}

func TestDescriber_FailsAfterMaxAttempts(t *testing.T) {
	m := mocks.NewMockEC2Client()
	id := launchOne(t, m)
	timer := newRecordingTimer()
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 5, InitialDelay: time.Second, Timer: timer})

	m.DelayDescribe(100)
	_, err := d.DescribeInstances(context.Background(), []string{id})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceNotDescribable)
	assert.Equal(t, compute.KindUnexpected, compute.KindOf(err))

	assert.Equal(t, 5, m.Calls(mocks.OpDescribeInstances))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, timer.Delays())
}

func TestDescriber_RetriesProviderErrors(t *testing.T) {
	m := mocks.NewMockEC2Client()
	id := launchOne(t, m)
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 5, InitialDelay: time.Millisecond, Timer: newRecordingTimer()})

	notFound := mocks.APIError(mocks.CodeInstanceNotFound, "not yet")
	m.FailNext(mocks.OpDescribeInstances, notFound, notFound)

	_, err := d.DescribeInstances(context.Background(), []string{id})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Calls(mocks.OpDescribeInstances))
}

func TestDescriber_LastProviderErrorKeepsKind(t *testing.T) {
	m := mocks.NewMockEC2Client()
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, Timer: newRecordingTimer()})

	_, err := d.DescribeInstances(context.Background(), []string{"i-missing"})
	require.Error(t, err)
	assert.Equal(t, compute.KindClient, compute.KindOf(err))
	assert.Equal(t, mocks.CodeInstanceNotFound, compute.APIErrorCode(err))
	assert.Equal(t, 3, m.Calls(mocks.OpDescribeInstances))
}

func TestDescriber_CredentialErrorsAreNotRetried(t *testing.T) {
	m := mocks.NewMockEC2Client()
	timer := newRecordingTimer()
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 5, InitialDelay: time.Second, Timer: timer})

	m.FailAlways(mocks.OpDescribeInstances, mocks.ErrNoCredentials)
	_, err := d.DescribeInstances(context.Background(), []string{"i-1"})
	require.Error(t, err)
	assert.Equal(t, compute.KindCredentials, compute.KindOf(err))
	assert.Equal(t, 1, m.Calls(mocks.OpDescribeInstances))
	assert.Empty(t, timer.Delays())
}

func TestDescriber_ContextCanceled(t *testing.T) {
	m := mocks.NewMockEC2Client()
	id := launchOne(t, m)
	d := NewDescriber(m, DescribeOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.DelayDescribe(100)
	_, err := d.DescribeInstances(ctx, []string{id})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.Calls(mocks.OpDescribeInstances))
}

func TestNewDescriber_Defaults(t *testing.T) {
	d := NewDescriber(mocks.NewMockEC2Client(), DescribeOptions{})
	assert.Equal(t, 5, d.opts.MaxAttempts)
	assert.Equal(t, time.Second, d.opts.InitialDelay)
}
