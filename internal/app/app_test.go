package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/internal/constants"
	"github.com/celestiaorg/ec2api/internal/types"
	"github.com/celestiaorg/ec2api/test/mocks"
)

func newTestApp(t *testing.T, mock *mocks.MockEC2Client) *fiber.App {
	t.Helper()

	cfg := config.Default()
	cfg.Instances.DefaultAMI = mocks.DefaultAMI
	cfg.Instances.KeyDir = t.TempDir()
	cfg.Instances.WaiterMaxWait = 5 * time.Second

	factory := compute.ClientFactoryFunc(func(context.Context, string, string) (compute.EC2API, error) {
		return mock, nil
	})
	return NewApp(context.Background(), cfg, factory)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, mocks.NewMockEC2Client())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(constants.HeaderRequestID))

	var health types.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newTestApp(t, mocks.NewMockEC2Client())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(constants.HeaderRequestID, "caller-supplied")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "caller-supplied", resp.Header.Get(constants.HeaderRequestID))
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, mocks.NewMockEC2Client())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body types.SlugResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, types.InvalidInputSlug, body.Slug)
}

func TestMetricsExposesRequestCounters(t *testing.T) {
	mock := mocks.NewMockEC2Client()
	app := newTestApp(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/create-instance", strings.NewReader(`{"min_count":1,"max_count":1}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `ec2api_http_requests_total{code="200",method="POST",route="CreateInstance"}`)
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: customErrorHandler})
	app.Get("/teapot", func(*fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/boom", func(*fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	var body types.SlugResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", body.Error)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	body = types.SlugResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, types.ServerErrorSlug, body.Slug)
}
