package test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/pkg/api/v1/client"
	"github.com/celestiaorg/ec2api/test/mocks"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - Real API server
//   - Real API client
//   - Mocked EC2 API
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App    *fiber.App
	Server *httptest.Server
	Config *config.Config
	KeyDir string

	// Client components
	APIClient client.Client

	// Mock provider
	MockEC2 *mocks.MockEC2Client
	Factory compute.ClientFactory

	mu             sync.Mutex
	clientRequests []ClientRequest

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup     func()
	cleanupOnce sync.Once
}

// SetS sets the suite instance for this suite
func (s *Suite) SetS(_ suite.TestingSuite) {
	// This method is required by suite.TestingSuite but we don't need to do anything here
}

// SetT sets the testing.T instance for this suite
func (s *Suite) SetT(t *testing.T) {
	s.t = t
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// NewSuite creates a new test suite.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	// Create suite with default timeout
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	s := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
		KeyDir:     t.TempDir(),
	}

	s.cleanup = func() {
		if s.Server != nil {
			s.Server.Close()
		}
		if s.cancelFunc != nil {
			s.cancelFunc()
		}
	}

	// Setup mock EC2 client by default
	SetupMockEC2Client(s)

	// Setup server by default
	SetupServer(s)

	return s
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	s.cleanupOnce.Do(func() {
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// Retry retries a function until it succeeds or the number of retries is reached.
func (s *Suite) Retry(fn func() error, retries int, interval time.Duration) (err error) {
	for i := 0; i < retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return
}
