package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/celestiaorg/ec2api/internal/app"
	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/pkg/api/v1/client"
	"github.com/celestiaorg/ec2api/test/mocks"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 10 * time.Second

// TestConfig returns a configuration that keeps retries and waiters fast
func TestConfig(keyDir string) *config.Config {
	cfg := config.Default()
	cfg.Instances.DefaultAMI = mocks.DefaultAMI
	cfg.Instances.DefaultInstanceType = mocks.DefaultInstanceType
	cfg.Instances.KeyDir = keyDir
	cfg.Instances.DescribeInitialDelay = time.Millisecond
	cfg.Instances.WaiterMaxWait = 5 * time.Second
	return cfg
}

// SetupServer configures the test suite with a real API server
func SetupServer(suite *Suite) {
	suite.Config = TestConfig(suite.KeyDir)
	suite.App = app.NewApp(suite.Context(), suite.Config, suite.Factory)

	// Create test server using adaptor to convert Fiber app to http.Handler
	suite.Server = httptest.NewServer(adaptor.FiberApp(suite.App))

	// Create API client with test configuration
	apiClient, err := client.NewClient(&client.Options{
		BaseURL: suite.Server.URL,
		Timeout: testClientTimeout,
	})
	suite.Require().NoError(err, "Failed to create API client")
	suite.APIClient = apiClient
}

// NewClient returns an API client for the suite server with the given profile and region headers
func (s *Suite) NewClient(profile, region string) client.Client {
	apiClient, err := client.NewClient(&client.Options{
		BaseURL: s.Server.URL,
		Timeout: testClientTimeout,
		Profile: profile,
		Region:  region,
	})
	s.Require().NoError(err, "Failed to create API client")
	return apiClient
}
