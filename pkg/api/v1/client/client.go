// Package client provides the API client for interacting with the ec2api server
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/ec2api/internal/constants"
	"github.com/celestiaorg/ec2api/internal/types"
	"github.com/celestiaorg/ec2api/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests. Instance requests block until EC2
// reports the target state, so it is well above the server's waiter bound.
const DefaultTimeout = 15 * time.Minute

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (types.HealthResponse, error)

	// Instance Endpoints
	CreateInstance(ctx context.Context, req types.CreateInstanceRequest) (types.InstanceResponse, error)
	TerminateInstance(ctx context.Context, req types.TerminateInstanceRequest) (types.InstanceResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// Profile selects the AWS profile on the server; empty uses the server default
	Profile string

	// Region selects the AWS region on the server; empty uses the server default
	Region string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
	profile string
	region  string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
		profile: opts.Profile,
		region:  opts.Region,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	// Create a new agent based on the HTTP method
	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	// Set common headers
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if c.profile != "" {
		agent.Set(constants.HeaderProfile, c.profile)
	}
	if c.region != "" {
		agent.Set(constants.HeaderRegion, c.region)
	}

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		// Prefer the slug error message, fall back to the raw body
		var slug types.SlugResponse
		if err := json.Unmarshal(body, &slug); err == nil && slug.Error != "" {
			return &fiber.Error{
				Code:    statusCode,
				Message: slug.Error,
			}
		}
		return &fiber.Error{
			Code:    statusCode,
			Message: string(body),
		}
	}

	// Decode the response body if a target is provided
	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (types.HealthResponse, error) {
	var response types.HealthResponse
	err := c.executeRequest(ctx, http.MethodGet, routes.HealthCheckURL(), nil, &response)
	return response, err
}

// CreateInstance launches instances and returns their ids once they are running
func (c *APIClient) CreateInstance(ctx context.Context, req types.CreateInstanceRequest) (types.InstanceResponse, error) {
	var response types.InstanceResponse
	err := c.executeRequest(ctx, http.MethodPost, routes.CreateInstanceURL(), req, &response)
	return response, err
}

// TerminateInstance terminates instances and returns their ids once they are terminated
func (c *APIClient) TerminateInstance(ctx context.Context, req types.TerminateInstanceRequest) (types.InstanceResponse, error) {
	var response types.InstanceResponse
	err := c.executeRequest(ctx, http.MethodDelete, routes.TerminateInstanceURL(), req, &response)
	return response, err
}
