package compute

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEC2 answers the calls exercised here and panics on anything else
type stubEC2 struct {
	EC2API
	err error
}

func (s *stubEC2) DescribeKeyPairs(context.Context, *ec2.DescribeKeyPairsInput, ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ec2.DescribeKeyPairsOutput{}, nil
}

func (s *stubEC2) CreateKeyPair(context.Context, *ec2.CreateKeyPairInput, ...func(*ec2.Options)) (*ec2.CreateKeyPairOutput, error) {
	return nil, s.err
}

func TestInstrumentedClient(t *testing.T) {
	ctx := context.Background()

	success := testutil.ToFloat64(ec2CallsTotal.WithLabelValues("DescribeKeyPairs", "success"))
	client := NewInstrumentedClient(&stubEC2{})
	_, err := client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	require.NoError(t, err)
	assert.Equal(t, success+1, testutil.ToFloat64(ec2CallsTotal.WithLabelValues("DescribeKeyPairs", "success")))

	clientErrs := testutil.ToFloat64(ec2CallsTotal.WithLabelValues("CreateKeyPair", "client"))
	client = NewInstrumentedClient(&stubEC2{err: &smithy.GenericAPIError{Code: "InvalidKeyPair.Duplicate"}})
	_, err = client.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{})
	require.Error(t, err)
	assert.Equal(t, clientErrs+1, testutil.ToFloat64(ec2CallsTotal.WithLabelValues("CreateKeyPair", "client")))

	unexpected := testutil.ToFloat64(ec2CallsTotal.WithLabelValues("DescribeKeyPairs", "unexpected"))
	client = NewInstrumentedClient(&stubEC2{err: errors.New("connection reset")})
	_, err = client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	require.Error(t, err)
	assert.Equal(t, unexpected+1, testutil.ToFloat64(ec2CallsTotal.WithLabelValues("DescribeKeyPairs", "unexpected")))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "credentials", resultLabel(&smithy.GenericAPIError{Code: "AuthFailure"}))
}
