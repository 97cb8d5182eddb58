package test

import (
	"context"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/test/mocks"
)

// ClientRequest records the profile and region a client was built for
type ClientRequest struct {
	Profile string
	Region  string
}

// SetupMockEC2Client sets up a mock EC2 client and the factory handing it out
func SetupMockEC2Client(suite *Suite) {
	suite.MockEC2 = mocks.NewMockEC2Client()
	suite.Factory = compute.ClientFactoryFunc(func(_ context.Context, profile, region string) (compute.EC2API, error) {
		suite.mu.Lock()
		defer suite.mu.Unlock()
		suite.clientRequests = append(suite.clientRequests, ClientRequest{Profile: profile, Region: region})
		return suite.MockEC2, nil
	})
}

// ClientRequests returns the profile/region pairs EC2 clients were built for, in order
func (s *Suite) ClientRequests() []ClientRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ClientRequest(nil), s.clientRequests...)
}
