package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/ec2api/internal/constants"
	log "github.com/celestiaorg/ec2api/internal/logger"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Metrics())
	app.Use(Logger())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFromCtx(c))
	}).Name("TestOK")
	app.Get("/fail", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("boom")
	}).Name("TestFail")
	app.Get("/reject", func(*fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "rejected")
	}).Name("TestReject")
	return app
}

func TestRequestID_Generated(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	id := resp.Header.Get(constants.HeaderRequestID)
	assert.Len(t, id, 36)

	body := new(bytes.Buffer)
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, id, body.String())
}

func TestRequestID_Propagated(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(fiber.MethodGet, "/ok", nil)
	req.Header.Set(constants.HeaderRequestID, "caller-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "caller-id", resp.Header.Get(constants.HeaderRequestID))
}

func TestLogger_WritesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stdout)

	app := newTestApp()
	req := httptest.NewRequest(fiber.MethodGet, "/ok", nil)
	req.Header.Set(constants.HeaderRequestID, "log-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Request", entry["msg"])
	assert.Equal(t, "log-id", entry["request_id"])
	assert.Equal(t, "/ok", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "TestOK", entry["handler"])
}

func TestLogger_StatusFromReturnedError(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		error  string
	}{
		{name: "unknown route", path: "/missing", status: fiber.StatusNotFound, error: "Cannot GET /missing"},
		{name: "handler error", path: "/reject", status: fiber.StatusBadRequest, error: "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stdout)

			resp, err := newTestApp().Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.status, resp.StatusCode)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, tt.error, entry["error"])
			assert.Equal(t, "info", entry["level"])
		})
	}
}

func TestMetrics_CountsByRouteAndCode(t *testing.T) {
	app := newTestApp()
	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("TestOK", fiber.MethodGet, "200"))
	failBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("TestFail", fiber.MethodGet, "500"))

	for _, path := range []string{"/ok", "/ok", "/fail"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("TestOK", fiber.MethodGet, "200")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("TestFail", fiber.MethodGet, "500")))
}

func TestRequestContext(t *testing.T) {
	t.Run("live while the request runs and released afterwards", func(t *testing.T) {
		var seen context.Context
		app := fiber.New()
		app.Use(RequestContext(context.Background()))
		app.Get("/", func(c *fiber.Ctx) error {
			seen = c.UserContext()
			return c.SendString(fmt.Sprint(seen.Err()))
		})

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, "<nil>", string(body))
		require.NotNil(t, seen)
		assert.ErrorIs(t, seen.Err(), context.Canceled)
	})

	t.Run("canceled base aborts the handler", func(t *testing.T) {
		base, cancel := context.WithCancel(context.Background())
		cancel()

		app := fiber.New()
		app.Use(RequestContext(base))
		app.Get("/", func(c *fiber.Ctx) error {
			select {
			case <-c.UserContext().Done():
				return fiber.NewError(fiber.StatusServiceUnavailable, c.UserContext().Err().Error())
			case <-time.After(5 * time.Second):
				return c.SendStatus(fiber.StatusOK)
			}
		})

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, context.Canceled.Error(), string(body))
	})
}
