package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/celestiaorg/ec2api/internal/compute"
)

// MockClientFactory is a mock implementation of compute.ClientFactory
type MockClientFactory struct {
	mock.Mock
}

var _ compute.ClientFactory = (*MockClientFactory)(nil) // Ensure interface compliance

// NewClient implements compute.ClientFactory
func (m *MockClientFactory) NewClient(ctx context.Context, profile, region string) (compute.EC2API, error) {
	args := m.Called(ctx, profile, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(compute.EC2API), args.Error(1)
}
