package compute

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/celestiaorg/ec2api/internal/config"
)

// defaultProfile is resolved by the SDK's default chain; naming it explicitly would make a
// missing shared config file an error
const defaultProfile = "default"

// AWSClientFactory builds instrumented *ec2.Client values from the AWS default config chain
type AWSClientFactory struct {
	cfg config.AWSConfig
}

var _ ClientFactory = (*AWSClientFactory)(nil)

// NewAWSClientFactory creates a factory with the given defaults
func NewAWSClientFactory(cfg config.AWSConfig) *AWSClientFactory {
	return &AWSClientFactory{cfg: cfg}
}

// NewClient loads the AWS configuration for profile and region and returns an EC2 client.
// Static credentials from the service configuration take precedence over the profile.
func (f *AWSClientFactory) NewClient(ctx context.Context, profile, region string) (EC2API, error) {
	if profile == "" {
		profile = f.cfg.Profile
	}
	if region == "" {
		region = f.cfg.Region
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	switch {
	case f.cfg.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(f.cfg.AccessKeyID, f.cfg.SecretAccessKey, ""),
		))
	case profile != "" && profile != defaultProfile:
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %q in region %q: %w", profile, region, err)
	}

	client := ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
		if f.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.cfg.Endpoint)
		}
	})

	return NewInstrumentedClient(client), nil
}
